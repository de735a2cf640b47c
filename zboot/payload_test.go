package zboot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildPayload assembles a raw payload by hand so parser tests do not
// depend on the packer.
func buildPayload(t *testing.T, blocks [][]byte, outputSizes []uint32, extra []byte) []byte {
	t.Helper()
	if len(blocks) != len(outputSizes) {
		t.Fatalf("blocks/outputSizes length mismatch")
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(len(blocks)))
	var scratch [4]byte
	for _, b := range blocks {
		binary.LittleEndian.PutUint32(scratch[:], uint32(len(b)))
		buf.Write(scratch[:])
	}
	for _, size := range outputSizes {
		binary.LittleEndian.PutUint32(scratch[:], size)
		buf.Write(scratch[:])
	}
	for _, b := range blocks {
		buf.Write(b)
	}
	buf.Write(extra)
	return buf.Bytes()
}

func TestParsePayload(t *testing.T) {
	blocks := [][]byte{
		[]byte("aaaa"),
		[]byte("bb"),
		[]byte("cccccc"),
	}
	outputSizes := []uint32{10, 20, 30}
	extra := []byte("bytecode")

	payload, err := ParsePayload(buildPayload(t, blocks, outputSizes, extra))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}

	if len(payload.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(payload.Parts))
	}
	if payload.UncompressedSize != 60 {
		t.Errorf("UncompressedSize = %d, want 60", payload.UncompressedSize)
	}
	if payload.TotalSize() != 60+len(extra) {
		t.Errorf("TotalSize() = %d, want %d", payload.TotalSize(), 60+len(extra))
	}
	if payload.ExtraOffset() != 60 {
		t.Errorf("ExtraOffset() = %d, want 60", payload.ExtraOffset())
	}
	if !bytes.Equal(payload.Extra, extra) {
		t.Errorf("Extra = %q, want %q", payload.Extra, extra)
	}

	wantParts := []Part{
		{InputOffset: 0, InputSize: 4, OutputOffset: 0, OutputSize: 10},
		{InputOffset: 4, InputSize: 2, OutputOffset: 10, OutputSize: 20},
		{InputOffset: 6, InputSize: 6, OutputOffset: 30, OutputSize: 30},
	}
	for i, want := range wantParts {
		if payload.Parts[i] != want {
			t.Errorf("part %d = %+v, want %+v", i, payload.Parts[i], want)
		}
	}

	// Input offsets must partition the blocks region exactly.
	if !bytes.Equal(payload.Blocks[4:6], []byte("bb")) {
		t.Errorf("part 1 block = %q, want %q", payload.Blocks[4:6], "bb")
	}
}

func TestParsePayloadNoExtra(t *testing.T) {
	payload, err := ParsePayload(buildPayload(t, [][]byte{[]byte("x")}, []uint32{5}, nil))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if len(payload.Extra) != 0 {
		t.Errorf("Extra = %q, want empty", payload.Extra)
	}
	if payload.TotalSize() != 5 {
		t.Errorf("TotalSize() = %d, want 5", payload.TotalSize())
	}
}

func TestParsePayloadRejects(t *testing.T) {
	valid := buildPayload(t, [][]byte{[]byte("abcd")}, []uint32{8}, nil)

	tests := []struct {
		name    string
		data    []byte
		wantErr *LaunchError
	}{
		{
			name:    "empty",
			data:    nil,
			wantErr: ErrPayloadTruncated,
		},
		{
			name:    "zero parts",
			data:    []byte{0},
			wantErr: ErrPayloadInvalid,
		},
		{
			name:    "truncated size arrays",
			data:    []byte{3, 1, 0, 0, 0},
			wantErr: ErrPayloadTruncated,
		},
		{
			name:    "blocks shorter than declared",
			data:    valid[:len(valid)-2],
			wantErr: ErrPayloadTruncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload(tt.data)
			if err == nil {
				t.Fatalf("ParsePayload() expected error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParsePayload() error = %v, want code %s", err, tt.wantErr.Code)
			}
		})
	}
}

func TestParseTrailer(t *testing.T) {
	payload := buildPayload(t, [][]byte{[]byte("zz")}, []uint32{4}, []byte("extra"))
	launcher := bytes.Repeat([]byte{0x7f}, 100)
	image := AppendTrailer(launcher, payload)

	got, err := ParseTrailer(image)
	if err != nil {
		t.Fatalf("ParseTrailer() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("ParseTrailer() returned %d bytes, want %d-byte payload", len(got), len(payload))
	}

	// The trailer itself must not leak into the payload view, or the extra
	// segment would grow by four bytes.
	parsed, err := ParsePayload(got)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if !bytes.Equal(parsed.Extra, []byte("extra")) {
		t.Errorf("Extra = %q, want %q", parsed.Extra, "extra")
	}
}

func TestParseTrailerRejects(t *testing.T) {
	if _, err := ParseTrailer([]byte{1, 2}); !errors.Is(err, ErrPayloadTruncated) {
		t.Errorf("short file: error = %v, want %s", err, ErrPayloadTruncated.Code)
	}

	var bad [8]byte
	binary.LittleEndian.PutUint32(bad[4:], 99) // offset past payload end
	if _, err := ParseTrailer(bad[:]); !errors.Is(err, ErrPayloadInvalid) {
		t.Errorf("bad offset: error = %v, want %s", err, ErrPayloadInvalid.Code)
	}
}
