package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderLen = 14

	// TypeKeepalive is the reserved "I am alive" packet kind.
	TypeKeepalive uint16 = 0xFFFF

	maxEmptyReads = 100
)

var (
	ErrPeerClosed      = errors.New("frame: peer closed connection")
	ErrShortHeader     = errors.New("frame: short header")
	ErrShortPayload    = errors.New("frame: short payload")
	ErrLengthTooSmall  = errors.New("frame: length smaller than header")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Header is the fixed 14-byte little-endian passport header.
type Header struct {
	Signature uint16
	Type      uint16
	Timestamp uint32
	Length    uint32
	Checksum  uint16
}

// PayloadLen returns the number of payload bytes that follow the header.
func (h Header) PayloadLen() int {
	if h.Length < HeaderLen {
		return 0
	}
	return int(h.Length - HeaderLen)
}

// Frame is one complete passport packet.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 16 * 1024 * 1024,
	}
}

// ReadFrame reads exactly one header and then exactly the declared payload.
// A clean close before the first header byte yields ErrPeerClosed; a close
// anywhere later yields ErrShortHeader or ErrShortPayload. The checksum is
// carried through unverified.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	n, err := readFull(r, fixed[:])
	if err != nil {
		switch {
		case n == 0 && errors.Is(err, io.EOF):
			return Frame{}, ErrPeerClosed
		case errors.Is(err, io.EOF):
			return Frame{}, fmt.Errorf("%w: got %d of %d bytes", ErrShortHeader, n, HeaderLen)
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.Length < HeaderLen {
		return Frame{}, fmt.Errorf("%w: length=%d", ErrLengthTooSmall, h.Length)
	}
	if limits.MaxPayloadBytes > 0 && h.Length-HeaderLen > limits.MaxPayloadBytes {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, h.Length-HeaderLen)
	}

	payload := make([]byte, h.PayloadLen())
	if len(payload) > 0 {
		n, err := readFull(r, payload)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Frame{}, fmt.Errorf("%w: got %d of %d bytes", ErrShortPayload, n, len(payload))
			}
			return Frame{}, err
		}
	}
	return Frame{Header: h, Payload: payload}, nil
}

// readFull accumulates chunks until buf is full. Any EOF before that is
// reported as io.EOF together with the byte count collected so far, and a
// reader that keeps returning (0, nil) is abandoned with io.ErrNoProgress.
func readFull(r io.Reader, buf []byte) (int, error) {
	total := 0
	empty := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if total == len(buf) {
			return total, nil
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			return total, err
		}
		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return total, io.ErrNoProgress
			}
			continue
		}
		empty = 0
	}
	return total, nil
}

func WriteFrame(w io.Writer, f Frame) error {
	h := f.Header
	h.Length = HeaderLen + uint32(len(f.Payload))
	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.LittleEndian.PutUint16(buf[0:2], h.Signature)
	binary.LittleEndian.PutUint16(buf[2:4], h.Type)
	binary.LittleEndian.PutUint32(buf[4:8], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[8:12], h.Length)
	binary.LittleEndian.PutUint16(buf[12:14], h.Checksum)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("%w: got %d of %d bytes", ErrShortHeader, len(b), HeaderLen)
	}
	return Header{
		Signature: binary.LittleEndian.Uint16(b[0:2]),
		Type:      binary.LittleEndian.Uint16(b[2:4]),
		Timestamp: binary.LittleEndian.Uint32(b[4:8]),
		Length:    binary.LittleEndian.Uint32(b[8:12]),
		Checksum:  binary.LittleEndian.Uint16(b[12:14]),
	}, nil
}
