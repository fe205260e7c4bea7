package transport

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single message. Browsers cap host-bound messages at
// 64 MiB.
const MaxFrameSize = 64 << 20

var (
	// ErrFrameTooLarge is returned for frames above MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrInvalidFrame is returned for a complete frame whose payload is not
	// JSON. The stream stays in sync and the next frame can be read.
	ErrInvalidFrame = errors.New("frame is not valid JSON")
)

// WriteFrame marshals v and writes it with its length prefix in one write.
func WriteFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(data) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON value.
func ReadFrame(r io.Reader) (json.RawMessage, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("pipe closed: %w", io.EOF)
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.LittleEndian.Uint32(lengthBuf[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidFrame, length)
	}
	return payload, nil
}
