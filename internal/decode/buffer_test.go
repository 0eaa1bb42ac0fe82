package decode_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/33TU/proxyd/internal/decode"
)

// fixedFrame decodes a frame once it sees a trailing 0x00, mirroring the
// NUL-terminated strings used by the SOCKS4 request format.
func fixedFrame(buf []byte) (int, error) {
	i := bytes.IndexByte(buf, 0x00)
	if i < 0 {
		return 0, decode.ErrNeedMoreData
	}
	return i + 1, nil
}

func TestReader_DecodeAcrossChunks(t *testing.T) {
	src := bytes.NewReader([]byte("ab\x00residual"))
	r := decode.NewReader(src, 1)

	frame, err := r.Decode(fixedFrame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(frame) != "ab\x00" {
		t.Fatalf("frame = %q, want %q", frame, "ab\x00")
	}
	if string(r.Residual()) != "residual" {
		t.Fatalf("Residual() = %q, want %q", r.Residual(), "residual")
	}
}

func TestReader_DecodeUnexpectedEOF(t *testing.T) {
	src := bytes.NewReader([]byte("no-terminator"))
	r := decode.NewReader(src, 4)

	_, err := r.Decode(fixedFrame)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReader_DecodeProtocolError(t *testing.T) {
	errBad := errors.New("bad frame")
	src := bytes.NewReader([]byte("xyz"))
	r := decode.NewReader(src, 4)

	_, err := r.Decode(func(buf []byte) (int, error) {
		return 0, errBad
	})
	if !errors.Is(err, errBad) {
		t.Fatalf("err = %v, want %v", err, errBad)
	}
}

func TestReader_SequentialDecodes(t *testing.T) {
	src := bytes.NewReader([]byte("one\x00two\x00"))
	r := decode.NewReader(src, 2)

	first, err := r.Decode(fixedFrame)
	if err != nil {
		t.Fatalf("first Decode: %v", err)
	}
	if string(first) != "one\x00" {
		t.Fatalf("first = %q, want %q", first, "one\x00")
	}

	second, err := r.Decode(fixedFrame)
	if err != nil {
		t.Fatalf("second Decode: %v", err)
	}
	if string(second) != "two\x00" {
		t.Fatalf("second = %q, want %q", second, "two\x00")
	}
}
