package regio

import (
	"fmt"
	"sync"

	"github.com/platinasystems/i2c"
)

// I2CConn is a Conn backed by a Linux /dev/i2c-* character device.
//
// Register writes go out as a single combined message (address bytes
// followed by the payload); reads use a write/read message pair in one
// I2C_RDWR transfer so no other traffic can interleave between the
// address phase and the data phase.
type I2CConn struct {
	mu   sync.Mutex
	bus  i2c.Bus
	addr uint16
}

// OpenI2C opens bus /dev/i2c-<busIndex> and binds the connection to the
// 7-bit slave address.
func OpenI2C(busIndex int, slaveAddr uint16) (*I2CConn, error) {
	c := &I2CConn{addr: slaveAddr}

	if err := c.bus.Open(busIndex); err != nil {
		return nil, fmt.Errorf("%w: open bus %d: %v", ErrBus, busIndex, err)
	}
	if err := c.bus.ForceSlaveAddress(int(slaveAddr)); err != nil {
		c.bus.Close()
		return nil, fmt.Errorf("%w: bind address 0x%02x: %v", ErrBus, slaveAddr, err)
	}

	return c, nil
}

// WriteReg writes val to reg as a width-byte big-endian payload.
func (c *I2CConn) WriteReg(reg uint16, width int, val uint32) error {
	frame, err := packWrite(reg, width, val)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := []i2c.Message{
		{Address: c.addr, Data: frame},
	}
	if err := c.bus.Send(msgs); err != nil {
		return fmt.Errorf("%w: write reg 0x%04x: %v", ErrBus, reg, err)
	}

	return nil
}

// ReadReg reads a width-byte big-endian payload from reg.
func (c *I2CConn) ReadReg(reg uint16, width int) (uint32, error) {
	if width < 1 || width > MaxWidth {
		return 0, fmt.Errorf("%w: %d bytes", ErrBadWidth, width)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	addr := []byte{byte(reg >> 8), byte(reg)}
	data := make([]byte, width)

	msgs := []i2c.Message{
		{Address: c.addr, Data: addr},
		{Address: c.addr, Flags: i2c.ReadData, Data: data},
	}
	if err := c.bus.Send(msgs); err != nil {
		return 0, fmt.Errorf("%w: read reg 0x%04x: %v", ErrBus, reg, err)
	}

	return unpack(data), nil
}

// Close releases the underlying bus file descriptor.
func (c *I2CConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bus.Close()
}
