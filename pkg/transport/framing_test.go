package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestFrameWriterReader(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{
			name:    "small message",
			payload: []byte("hello"),
		},
		{
			name:    "medium message",
			payload: bytes.Repeat([]byte("x"), 1000),
		},
		{
			name:    "max size message",
			payload: bytes.Repeat([]byte("y"), DefaultMaxMessageSize),
		},
		{
			name:    "single byte",
			payload: []byte{0x42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)

			writer := NewFrameWriter(buf)
			if err := writer.WriteFrame(tt.payload); err != nil {
				t.Fatalf("WriteFrame failed: %v", err)
			}

			if buf.Len() != FrameSize(len(tt.payload)) {
				t.Errorf("frame size = %d, want %d", buf.Len(), FrameSize(len(tt.payload)))
			}
			if got := binary.BigEndian.Uint32(buf.Bytes()[:LengthPrefixSize]); got != uint32(len(tt.payload)) {
				t.Errorf("length prefix = %d, want %d", got, len(tt.payload))
			}

			reader := NewFrameReader(buf)
			got, err := reader.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame failed: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d bytes", len(got), len(tt.payload))
			}
		})
	}
}

func TestFrameWriterRejects(t *testing.T) {
	buf := new(bytes.Buffer)
	writer := NewFrameWriterWithMaxSize(buf, 100)

	if err := writer.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty, got %v", err)
	}
	if err := writer.WriteFrame(bytes.Repeat([]byte("x"), 101)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("rejected frames wrote %d bytes", buf.Len())
	}
}

func TestFrameReaderRejects(t *testing.T) {
	frame := func(length uint32, payload []byte) *bytes.Buffer {
		buf := new(bytes.Buffer)
		var lengthBuf [LengthPrefixSize]byte
		binary.BigEndian.PutUint32(lengthBuf[:], length)
		buf.Write(lengthBuf[:])
		buf.Write(payload)
		return buf
	}

	tests := []struct {
		name  string
		input io.Reader
		want  error
	}{
		{"too large", frame(1000, bytes.Repeat([]byte("x"), 1000)), ErrMessageTooLarge},
		{"empty length", frame(0, nil), ErrMessageEmpty},
		{"truncated length", bytes.NewReader([]byte{0x00, 0x00}), ErrFrameTruncated},
		{"truncated payload", frame(10, []byte("abc")), ErrFrameTruncated},
		{"clean EOF", new(bytes.Buffer), io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewFrameReaderWithMaxSize(tt.input, 100)
			if _, err := reader.ReadFrame(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMultipleFrames(t *testing.T) {
	buf := new(bytes.Buffer)
	framer := NewFramer(buf)

	messages := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, msg := range messages {
		if err := framer.WriteFrame(msg); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}
	for i, want := range messages {
		got, err := framer.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %q, want %q", i, got, want)
		}
	}
}

func TestFramerLogsFrames(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	buf := new(bytes.Buffer)
	framer := NewFramer(buf)
	framer.SetLogger(logger, "conn-1")

	if err := framer.WriteFrame(bytes.Repeat([]byte{0xAB}, MaxLogFrameBytes+10)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if _, err := framer.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), out.String())
	}
	for _, want := range []string{"conn=conn-1", "dir=out", "size=78", "truncated=true"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("write log %q missing %q", lines[0], want)
		}
	}
	if !strings.Contains(lines[1], "dir=in") {
		t.Errorf("read log %q missing direction", lines[1])
	}
	if strings.Contains(lines[0], strings.Repeat("ab", MaxLogFrameBytes+1)) {
		t.Error("logged data was not truncated")
	}
}

func TestFramerNoLoggerNoPanic(t *testing.T) {
	framer := NewFramer(new(bytes.Buffer))
	framer.SetLogger(nil, "")
	if err := framer.WriteFrame([]byte("x")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
}
