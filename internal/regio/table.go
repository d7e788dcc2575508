package regio

import "time"

// DelayMark is the table address reserved for delay entries. An entry
// with this address sleeps for Val milliseconds instead of touching the
// bus; register 0x0000 is never written through a table.
const DelayMark uint16 = 0x0000

// Reg is one entry of a register table: a register address and the
// value to write there, or a delay when Addr is DelayMark.
type Reg struct {
	Addr uint16
	Val  uint32
}

// Delay builds a table entry that pauses playback for ms milliseconds.
func Delay(ms uint32) Reg {
	return Reg{Addr: DelayMark, Val: ms}
}

// Play writes a register table to conn in declared order. Every value
// is written with the given byte width. Delay entries block playback
// without bus traffic.
//
// Playback stops at the first error, leaving the device partially
// programmed. There is no rollback at this level; callers recover by
// power-cycling the device and replaying from the top.
func Play(conn Conn, width int, table []Reg) error {
	for _, r := range table {
		if r.Addr == DelayMark {
			time.Sleep(time.Duration(r.Val) * time.Millisecond)
			continue
		}

		if err := conn.WriteReg(r.Addr, width, r.Val); err != nil {
			return err
		}
	}

	return nil
}
