package zboot

import (
	"bytes"
	"errors"
	"testing"
)

func TestLocateEmbedded(t *testing.T) {
	payload, err := Pack(testImage(t, 2048), PackOptions{Parts: 1})
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	src, err := LocateEmbedded(payload)
	if err != nil {
		t.Fatalf("LocateEmbedded() error = %v", err)
	}
	if !bytes.Equal(src.Payload, payload) {
		t.Errorf("embedded payload view differs")
	}
	if err := src.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}

	if _, err := LocateEmbedded(nil); !errors.Is(err, ErrLocate) {
		t.Errorf("LocateEmbedded(nil) error = %v, want code %s", err, ErrLocate.Code)
	}
}

func TestSourceReleaseRunsOnce(t *testing.T) {
	calls := 0
	src := &Source{Payload: []byte{1}, release: func() error {
		calls++
		return nil
	}}

	if err := src.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := src.Release(); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("release ran %d times, want 1", calls)
	}
}
