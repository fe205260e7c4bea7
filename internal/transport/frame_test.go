package transport_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"golang.org/x/sync/errgroup"

	"deskbridge/internal/transport"
)

func TestWriteFrame_LittleEndianPrefix(t *testing.T) {
	var buf bytes.Buffer
	if err := transport.WriteFrame(&buf, map[string]string{"command": "connected"}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	b := buf.Bytes()
	want := `{"command":"connected"}`
	if got := binary.LittleEndian.Uint32(b[:4]); int(got) != len(want) {
		t.Fatalf("length prefix = %d, want %d", got, len(want))
	}
	if string(b[4:]) != want {
		t.Fatalf("payload = %q", b[4:])
	}

	raw, err := transport.ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if string(raw) != want {
		t.Fatalf("ReadFrame = %q", raw)
	}
	if _, err := transport.ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("want EOF on empty stream, got %v", err)
	}
}

func TestReadFrame_RejectsOversize(t *testing.T) {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], transport.MaxFrameSize+1)
	if _, err := transport.ReadFrame(bytes.NewReader(hdr[:])); !errors.Is(err, transport.ErrFrameTooLarge) {
		t.Fatalf("want ErrFrameTooLarge, got %v", err)
	}
}

func TestReadFrame_InvalidJSONKeepsStreamInSync(t *testing.T) {
	var buf bytes.Buffer
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], 8)
	buf.Write(hdr[:])
	buf.WriteString("not json")
	if err := transport.WriteFrame(&buf, map[string]int{"n": 2}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	if _, err := transport.ReadFrame(&buf); !errors.Is(err, transport.ErrInvalidFrame) {
		t.Fatalf("want ErrInvalidFrame, got %v", err)
	}
	raw, err := transport.ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame after invalid frame: %v", err)
	}
	if string(raw) != `{"n":2}` {
		t.Fatalf("ReadFrame = %q", raw)
	}
}

func TestPipe_SendRecvAndClose(t *testing.T) {
	a, b := transport.Pipe()
	ctx := context.Background()

	var g errgroup.Group
	g.Go(func() error {
		return a.Send(ctx, map[string]int{"n": 1})
	})
	raw, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(raw) != `{"n":1}` {
		t.Fatalf("Recv = %q", raw)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := b.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("peer Recv after close: want EOF, got %v", err)
	}
	if _, err := a.Recv(); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("Recv on closed port: want ErrClosed, got %v", err)
	}
	if err := a.Send(ctx, 1); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("Send on closed port: want ErrClosed, got %v", err)
	}
}
