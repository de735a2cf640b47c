//go:build linux

package zboot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocateInFile(t *testing.T) {
	image := testImage(t, 10000)
	extra := []byte("bytecode")
	payload, err := Pack(image, PackOptions{Parts: 3, Extra: extra})
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	launcher := bytes.Repeat([]byte{0x7f, 'E', 'L', 'F'}, 512)
	path := filepath.Join(t.TempDir(), "launcher")
	if err := os.WriteFile(path, AppendTrailer(launcher, payload), 0755); err != nil {
		t.Fatalf("writing launcher file: %v", err)
	}

	src, err := LocateInFile(path)
	if err != nil {
		t.Fatalf("LocateInFile() error = %v", err)
	}
	if !bytes.Equal(src.Payload, payload) {
		t.Fatalf("located payload differs from packed payload")
	}

	// The located view must drive a full extraction.
	parsed, err := ParsePayload(src.Payload)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	dst := make([]byte, parsed.TotalSize())
	if err := NewEngine(nil).Decompress(parsed, dst); err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if !bytes.Equal(dst[:len(image)], image) {
		t.Errorf("extracted image differs")
	}
	if !bytes.Equal(dst[len(image):], extra) {
		t.Errorf("extracted extra segment differs")
	}

	if err := src.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if err := src.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestLocateInFileMissing(t *testing.T) {
	_, err := LocateInFile(filepath.Join(t.TempDir(), "nonexistent"))
	if !errors.Is(err, ErrLocate) {
		t.Errorf("error = %v, want code %s", err, ErrLocate.Code)
	}
}

func TestLocateInFileTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny")
	if err := os.WriteFile(path, []byte{1, 2}, 0755); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := LocateInFile(path); !errors.Is(err, ErrPayloadTruncated) {
		t.Errorf("error = %v, want code %s", err, ErrPayloadTruncated.Code)
	}
}
