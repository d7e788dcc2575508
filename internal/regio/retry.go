package regio

// DefaultAttempts is the retry budget used when RetryConn.Attempts is
// left at zero.
const DefaultAttempts = 3

// RetryConn decorates a Conn with bounded retries of the same
// transaction. A failed write or read is re-issued unchanged up to
// Attempts times; the last error is returned if all attempts fail.
//
// The display bridge parts on this board NAK sporadically right after
// power-on, so their tables are played through a RetryConn. The image
// sensor is driven through the bare Conn.
type RetryConn struct {
	Conn

	// Attempts is the total number of tries per transaction.
	// Zero means DefaultAttempts.
	Attempts int
}

func (r *RetryConn) attempts() int {
	if r.Attempts < 1 {
		return DefaultAttempts
	}
	return r.Attempts
}

// WriteReg writes through the wrapped Conn, retrying on failure.
func (r *RetryConn) WriteReg(reg uint16, width int, val uint32) error {
	var err error
	for i := 0; i < r.attempts(); i++ {
		if err = r.Conn.WriteReg(reg, width, val); err == nil {
			return nil
		}
	}
	return err
}

// ReadReg reads through the wrapped Conn, retrying on failure.
func (r *RetryConn) ReadReg(reg uint16, width int) (uint32, error) {
	var (
		val uint32
		err error
	)
	for i := 0; i < r.attempts(); i++ {
		if val, err = r.Conn.ReadReg(reg, width); err == nil {
			return val, nil
		}
	}
	return 0, err
}
