package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MinServerVersion is the lowest protocol version the client accepts.
	MinServerVersion int32 = 2

	versionLen   = 4
	signatureLen = 8
)

var ErrHandshake = errors.New("session: handshake failed")

// ClientSignature is the fixed identity written after the server version is
// accepted: int32 0 followed by int32 1, little-endian.
var ClientSignature = [signatureLen]byte{0, 0, 0, 0, 1, 0, 0, 0}

// HandshakeError describes why the version exchange failed.
type HandshakeError struct {
	Reason  string
	Version int32
	Err     error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session: handshake failed: %s: %v", e.Reason, e.Err)
	}
	return "session: handshake failed: " + e.Reason
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

func (e *HandshakeError) Is(target error) bool {
	return target == ErrHandshake
}

// Handshake reads the server's protocol version and answers with the client
// signature. It returns the server version on success.
func Handshake(rw io.ReadWriter) (int32, error) {
	var buf [versionLen]byte
	n, err := io.ReadFull(rw, buf[:])
	if err != nil {
		return 0, &HandshakeError{
			Reason: fmt.Sprintf("short version read (%d of %d bytes)", n, versionLen),
			Err:    err,
		}
	}
	version := int32(binary.LittleEndian.Uint32(buf[:]))
	if version < MinServerVersion {
		return version, &HandshakeError{
			Reason:  fmt.Sprintf("server version %d below minimum %d", version, MinServerVersion),
			Version: version,
		}
	}

	n, err = rw.Write(ClientSignature[:])
	if err != nil {
		return version, &HandshakeError{Reason: "signature write", Version: version, Err: err}
	}
	if n != signatureLen {
		return version, &HandshakeError{
			Reason:  fmt.Sprintf("short signature write (%d of %d bytes)", n, signatureLen),
			Version: version,
		}
	}
	return version, nil
}
