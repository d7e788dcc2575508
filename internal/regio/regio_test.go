package regio

import (
	"bytes"
	"errors"
	"testing"
)

// fakeConn records writes and serves canned reads. failAt makes the
// n-th write fail (1-based); failReads makes every read fail.
type fakeConn struct {
	writes    []Reg
	widths    []int
	regs      map[uint16]uint32
	failAt    int
	failReads bool
}

var errFake = errors.New("fake bus error")

func (f *fakeConn) WriteReg(reg uint16, width int, val uint32) error {
	if f.failAt > 0 && len(f.writes)+1 == f.failAt {
		return errFake
	}
	f.writes = append(f.writes, Reg{Addr: reg, Val: val})
	f.widths = append(f.widths, width)
	if f.regs == nil {
		f.regs = make(map[uint16]uint32)
	}
	f.regs[reg] = val
	return nil
}

func (f *fakeConn) ReadReg(reg uint16, width int) (uint32, error) {
	if f.failReads {
		return 0, errFake
	}
	return f.regs[reg], nil
}

func TestPackWrite(t *testing.T) {
	tests := []struct {
		name  string
		reg   uint16
		width int
		val   uint32
		want  []byte
	}{
		{"one byte", 0x3008, 1, 0x42, []byte{0x30, 0x08, 0x42}},
		{"two bytes", 0x350a, 2, 0x03ff, []byte{0x35, 0x0a, 0x03, 0xff}},
		{"three bytes", 0x3500, 3, 0x0ffff0, []byte{0x35, 0x00, 0x0f, 0xff, 0xf0}},
		{"four bytes", 0x0100, 4, 0xdeadbeef, []byte{0x01, 0x00, 0xde, 0xad, 0xbe, 0xef}},
		{"truncates high bits", 0x3008, 1, 0x1ff, []byte{0x30, 0x08, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := packWrite(tt.reg, tt.width, tt.val)
			if err != nil {
				t.Fatalf("packWrite() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("packWrite() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestPackWriteBadWidth(t *testing.T) {
	for _, width := range []int{0, -1, 5, 8} {
		if _, err := packWrite(0x3000, width, 0); !errors.Is(err, ErrBadWidth) {
			t.Errorf("packWrite(width=%d) error = %v, want ErrBadWidth", width, err)
		}
	}
}

func TestUnpack(t *testing.T) {
	if got := unpack([]byte{0x0f, 0xff, 0xf0}); got != 0x0ffff0 {
		t.Errorf("unpack() = %#x, want 0x0ffff0", got)
	}
	if got := unpack([]byte{0x42}); got != 0x42 {
		t.Errorf("unpack() = %#x, want 0x42", got)
	}
}

func TestModRegPreservesUnmaskedBits(t *testing.T) {
	conn := &fakeConn{regs: map[uint16]uint32{0x3503: 0xa5}}

	if err := ModReg(conn, 0x3503, 0x03, 0x02); err != nil {
		t.Fatalf("ModReg() error = %v", err)
	}

	// 0xa5 with the low two bits replaced by 0b10.
	if got := conn.regs[0x3503]; got != 0xa6 {
		t.Errorf("register = %#x, want 0xa6", got)
	}
}

func TestModRegReadFailure(t *testing.T) {
	conn := &fakeConn{failReads: true}

	if err := ModReg(conn, 0x3503, 0x01, 0x01); !errors.Is(err, errFake) {
		t.Errorf("ModReg() error = %v, want fake bus error", err)
	}
	if len(conn.writes) != 0 {
		t.Errorf("ModReg() wrote %d registers after failed read, want 0", len(conn.writes))
	}
}

func TestPlayOrderAndWidth(t *testing.T) {
	conn := &fakeConn{}
	table := []Reg{
		{Addr: 0x3103, Val: 0x93},
		{Addr: 0x3008, Val: 0x82},
		{Addr: 0x3017, Val: 0x7f},
	}

	if err := Play(conn, 1, table); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if len(conn.writes) != len(table) {
		t.Fatalf("Play() wrote %d registers, want %d", len(conn.writes), len(table))
	}
	for i, r := range table {
		if conn.writes[i] != r {
			t.Errorf("write %d = %+v, want %+v", i, conn.writes[i], r)
		}
		if conn.widths[i] != 1 {
			t.Errorf("write %d width = %d, want 1", i, conn.widths[i])
		}
	}
}

func TestPlayDelayEntrySkipsBus(t *testing.T) {
	conn := &fakeConn{}
	table := []Reg{
		{Addr: 0x0002, Val: 0x0001},
		Delay(1),
		{Addr: 0x0003, Val: 0x0000},
	}

	if err := Play(conn, 2, table); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if len(conn.writes) != 2 {
		t.Fatalf("Play() wrote %d registers, want 2 (delay must not hit the bus)", len(conn.writes))
	}
	for _, w := range conn.writes {
		if w.Addr == DelayMark {
			t.Errorf("Play() wrote to the delay mark address")
		}
	}
}

func TestPlayStopsAtFirstError(t *testing.T) {
	conn := &fakeConn{failAt: 3}
	table := []Reg{
		{Addr: 0x3103, Val: 0x93},
		{Addr: 0x3008, Val: 0x82},
		{Addr: 0x3017, Val: 0x7f},
		{Addr: 0x3018, Val: 0xfc},
	}

	err := Play(conn, 1, table)
	if !errors.Is(err, errFake) {
		t.Fatalf("Play() error = %v, want fake bus error", err)
	}

	// The first two writes landed; nothing after the failure did.
	if len(conn.writes) != 2 {
		t.Errorf("Play() wrote %d registers before stopping, want 2", len(conn.writes))
	}
}

// flakyConn fails the first failures calls of each operation.
type flakyConn struct {
	fakeConn
	failures   int
	writeCalls int
	readCalls  int
}

func (f *flakyConn) WriteReg(reg uint16, width int, val uint32) error {
	f.writeCalls++
	if f.writeCalls <= f.failures {
		return errFake
	}
	return f.fakeConn.WriteReg(reg, width, val)
}

func (f *flakyConn) ReadReg(reg uint16, width int) (uint32, error) {
	f.readCalls++
	if f.readCalls <= f.failures {
		return 0, errFake
	}
	return f.fakeConn.ReadReg(reg, width)
}

func TestRetryConnRecovers(t *testing.T) {
	inner := &flakyConn{failures: 2}
	conn := &RetryConn{Conn: inner}

	if err := conn.WriteReg(0x0002, 2, 0x0001); err != nil {
		t.Fatalf("WriteReg() error = %v, want success on third attempt", err)
	}
	if inner.writeCalls != 3 {
		t.Errorf("WriteReg() attempts = %d, want 3", inner.writeCalls)
	}
}

func TestRetryConnExhausted(t *testing.T) {
	inner := &flakyConn{failures: 10}
	conn := &RetryConn{Conn: inner}

	if err := conn.WriteReg(0x0002, 2, 0x0001); !errors.Is(err, errFake) {
		t.Fatalf("WriteReg() error = %v, want fake bus error", err)
	}
	if inner.writeCalls != DefaultAttempts {
		t.Errorf("WriteReg() attempts = %d, want %d", inner.writeCalls, DefaultAttempts)
	}
}

func TestRetryConnRead(t *testing.T) {
	inner := &flakyConn{failures: 1}
	inner.regs = map[uint16]uint32{0x0000: 0x1234}
	conn := &RetryConn{Conn: inner, Attempts: 2}

	val, err := conn.ReadReg(0x0000, 2)
	if err != nil {
		t.Fatalf("ReadReg() error = %v", err)
	}
	if val != 0x1234 {
		t.Errorf("ReadReg() = %#x, want 0x1234", val)
	}
	if inner.readCalls != 2 {
		t.Errorf("ReadReg() attempts = %d, want 2", inner.readCalls)
	}
}
