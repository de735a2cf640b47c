package zboot

import "encoding/binary"

const (
	// TrailerSize is the size of the self-hosting trailer: a little-endian
	// u32 at the very end of the launcher file holding the byte offset
	// where the payload starts within that same file.
	TrailerSize = 4

	// MaxParts is the largest part count the one-byte header field allows.
	MaxParts = 255

	partSizeLen = 4 // u32 per entry in the input/output size arrays

	// maxPayloadSize caps the summed part sizes; offsets are u32 on the wire.
	maxPayloadSize = 1<<32 - 1
)

// Part describes one independently compressed chunk: where its compressed
// bytes live inside the blocks region and where its decompressed bytes
// belong inside the destination buffer. Ranges of distinct parts never
// overlap; offsets are running sums computed at parse time.
type Part struct {
	InputOffset  uint32
	InputSize    uint32
	OutputOffset uint32
	OutputSize   uint32
}

// Payload is a parsed view over the packed payload bytes. All slices alias
// the input buffer; nothing is copied.
type Payload struct {
	Parts  []Part
	Blocks []byte // concatenated compressed chunks, ordered by part index
	Extra  []byte // optional trailing segment, copied verbatim (may be empty)

	UncompressedSize uint32 // sum of all part output sizes
}

// TotalSize is the number of bytes the destination buffer must hold: the
// decompressed image plus the extra segment appended after it.
func (p *Payload) TotalSize() int {
	return int(p.UncompressedSize) + len(p.Extra)
}

// ExtraOffset is the offset of the extra segment within the destination
// buffer. Only meaningful when Extra is non-empty.
func (p *Payload) ExtraOffset() int {
	return int(p.UncompressedSize)
}

// cursor is a bounds-checked reader over a byte buffer. Every read reports
// truncation as an error instead of panicking, closing the unvalidated
// header gap of the original format.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) u8() (byte, error) {
	if c.remaining() < 1 {
		return 0, ErrPayloadTruncated.WithDetail("offset", c.off)
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

func (c *cursor) u32() (uint32, error) {
	if c.remaining() < 4 {
		return 0, ErrPayloadTruncated.WithDetail("offset", c.off)
	}
	v := binary.LittleEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

// bytes returns a view of the next n bytes without copying.
func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, ErrPayloadTruncated.
			WithDetail("offset", c.off).
			WithDetail("need", n).
			WithDetail("have", c.remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// ParsePayload interprets a packed payload:
//
//	byte 0          part count N (>= 1)
//	bytes 1..1+4N   input sizes, u32 little-endian each
//	bytes ..+4N     output sizes, u32 little-endian each
//	bytes ..        compressed blocks, concatenated in part order
//	bytes ..        optional extra segment, everything that remains
//
// It is a pure function over the buffer: no I/O, no copying, only typed
// views. Declared sizes are validated against the actual buffer length.
func ParsePayload(data []byte) (*Payload, error) {
	cur := &cursor{buf: data}

	count, err := cur.u8()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrPayloadInvalid.WithMessage("payload declares zero parts")
	}

	parts := make([]Part, count)
	for i := range parts {
		if parts[i].InputSize, err = cur.u32(); err != nil {
			return nil, err
		}
	}
	for i := range parts {
		if parts[i].OutputSize, err = cur.u32(); err != nil {
			return nil, err
		}
	}

	// Running sums in 64 bits so declared sizes cannot wrap around and
	// sneak past the length checks below.
	var inputOffset, outputOffset uint64
	for i := range parts {
		parts[i].InputOffset = uint32(inputOffset)
		parts[i].OutputOffset = uint32(outputOffset)
		inputOffset += uint64(parts[i].InputSize)
		outputOffset += uint64(parts[i].OutputSize)
	}
	if inputOffset > maxPayloadSize || outputOffset > maxPayloadSize {
		return nil, ErrPayloadInvalid.
			WithMessage("declared sizes exceed the format limit").
			WithDetail("compressed", inputOffset).
			WithDetail("uncompressed", outputOffset)
	}

	blocks, err := cur.bytes(int(inputOffset))
	if err != nil {
		return nil, err
	}

	// Whatever follows the compressed blocks is the extra segment.
	extra, _ := cur.bytes(cur.remaining())

	return &Payload{
		Parts:            parts,
		Blocks:           blocks,
		Extra:            extra,
		UncompressedSize: uint32(outputOffset),
	}, nil
}

// ParseTrailer reads the self-hosting trailer from a complete launcher file
// image and returns the payload region, excluding the trailer itself.
func ParseTrailer(file []byte) ([]byte, error) {
	if len(file) < TrailerSize {
		return nil, ErrPayloadTruncated.WithMessage("file smaller than trailer")
	}
	offset := binary.LittleEndian.Uint32(file[len(file)-TrailerSize:])
	payloadEnd := len(file) - TrailerSize
	if int(offset) >= payloadEnd {
		return nil, ErrPayloadInvalid.
			WithMessage("trailer offset points past payload end").
			WithDetail("offset", offset).
			WithDetail("fileSize", len(file))
	}
	return file[offset:payloadEnd], nil
}
