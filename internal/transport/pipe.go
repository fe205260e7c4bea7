package transport

import "io"

// Pipe returns two connected in-memory ports. Closing one makes the other's
// Recv return io.EOF.
func Pipe() (*StreamPort, *StreamPort) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()

	a := NewStreamPort(ar, aw, func() error {
		_ = aw.Close()
		return ar.CloseWithError(ErrClosed)
	})
	b := NewStreamPort(br, bw, func() error {
		_ = bw.Close()
		return br.CloseWithError(ErrClosed)
	})
	return a, b
}
