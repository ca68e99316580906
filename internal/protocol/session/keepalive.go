package session

import (
	"fmt"
	"io"
)

// NextKeepalive returns the counter value that follows prev. It wraps from
// 255 to 0.
func NextKeepalive(prev uint8) uint8 {
	return prev + 1
}

// KeepaliveCounter is the rolling acknowledgement counter of one session. It
// starts at zero and is never shared between sessions.
type KeepaliveCounter struct {
	value uint8
	acks  uint64
}

func (c *KeepaliveCounter) Value() uint8 {
	return c.value
}

// Acks returns how many keepalives this session has answered.
func (c *KeepaliveCounter) Acks() uint64 {
	return c.acks
}

// Reply advances the counter and writes the new value back as one byte. The
// counter advances even when the write fails.
func (c *KeepaliveCounter) Reply(w io.Writer) (uint8, error) {
	c.value = NextKeepalive(c.value)
	n, err := w.Write([]byte{c.value})
	if err != nil {
		return c.value, fmt.Errorf("session: keepalive reply: %w", err)
	}
	if n != 1 {
		return c.value, fmt.Errorf("session: keepalive reply: %w", io.ErrShortWrite)
	}
	c.acks++
	return c.value, nil
}
