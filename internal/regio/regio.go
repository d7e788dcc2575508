// Package regio provides register-level access to I2C-programmed devices.
//
// Devices on the board (image sensor, DSI-LVDS bridge) expose 16-bit
// register addresses with big-endian payloads of one to four bytes. The
// package offers a Conn abstraction over a single device, a retrying
// decorator for flaky parts, and a table player for the long init
// sequences these chips require.
//
// Thread Safety:
//   - I2CConn serialises transactions internally; callers above it are
//     expected to hold their own device lock for multi-register sequences.
package regio

import (
	"errors"
	"fmt"
)

// MaxWidth is the largest register payload in bytes a single
// transaction may carry.
const MaxWidth = 4

// Sentinel errors for register transactions.
var (
	// ErrBus indicates the transaction reached the wire and failed there.
	ErrBus = errors.New("regio: bus transfer failed")

	// ErrBadWidth indicates a register width outside 1..MaxWidth.
	// The transaction is rejected before anything is transmitted.
	ErrBadWidth = errors.New("regio: register width out of range")
)

// Conn is a register-level connection to one device.
//
// Widths are in bytes (1..MaxWidth); values travel big-endian on the
// wire. Implementations must not retry on their own unless they are
// explicitly a retrying decorator.
type Conn interface {
	// WriteReg writes val to reg as a width-byte big-endian payload.
	WriteReg(reg uint16, width int, val uint32) error

	// ReadReg reads a width-byte big-endian payload from reg.
	ReadReg(reg uint16, width int) (uint32, error)
}

// packWrite builds the wire frame for a register write: two address
// bytes followed by the value, most significant byte first.
func packWrite(reg uint16, width int, val uint32) ([]byte, error) {
	if width < 1 || width > MaxWidth {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadWidth, width)
	}

	buf := make([]byte, 2+width)
	buf[0] = byte(reg >> 8)
	buf[1] = byte(reg)

	shifted := val << (8 * (MaxWidth - width))
	for i := 0; i < width; i++ {
		buf[2+i] = byte(shifted >> (8 * (MaxWidth - 1 - i)))
	}

	return buf, nil
}

// unpack assembles a big-endian payload into a value.
func unpack(data []byte) uint32 {
	var val uint32
	for _, b := range data {
		val = val<<8 | uint32(b)
	}
	return val
}

// ModReg performs a read-modify-write on a single register: the bits in
// mask are cleared and replaced with the masked bits of val, all other
// bits are preserved.
func ModReg(conn Conn, reg uint16, mask, val uint8) error {
	cur, err := conn.ReadReg(reg, 1)
	if err != nil {
		return err
	}

	cur &^= uint32(mask)
	cur |= uint32(val & mask)

	return conn.WriteReg(reg, 1, cur)
}
