package zboot

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
)

// PackOptions control how an executable image is packed into a payload.
type PackOptions struct {
	// Parts is the number of independently compressed chunks, 1..255.
	// More parts means more decompression parallelism at a small
	// compression-ratio cost. Zero means DefaultParts.
	Parts int

	// Level is the zstd encoder level. Zero means zstd.SpeedBestCompression,
	// since packing happens once offline while decompression happens on
	// every cold start.
	Level zstd.EncoderLevel

	// Extra is an optional segment (e.g. precompiled bytecode) appended
	// after the compressed blocks and copied verbatim at extraction time.
	Extra []byte

	// Progress, when set, is called after each part is compressed.
	Progress func(part int)
}

// DefaultParts is the default pack-time part count.
const DefaultParts = 4

// Pack compresses an executable image into the packed payload layout that
// ParsePayload understands. Parts are compressed concurrently; the split is
// an even byte partition with the remainder in the last part.
func Pack(image []byte, opts PackOptions) ([]byte, error) {
	parts := opts.Parts
	if parts == 0 {
		parts = DefaultParts
	}
	if parts < 1 || parts > MaxParts {
		return nil, fmt.Errorf("part count %d out of range 1..%d", parts, MaxParts)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("empty input image")
	}
	if parts > len(image) {
		parts = len(image)
	}
	level := opts.Level
	if level == 0 {
		level = zstd.SpeedBestCompression
	}

	chunkSize := len(image) / parts
	blocks := make([][]byte, parts)

	var eg errgroup.Group
	for i := 0; i < parts; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if i == parts-1 {
			end = len(image)
		}
		i := i
		chunk := image[start:end]
		eg.Go(func() error {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
			if err != nil {
				return err
			}
			blocks[i] = enc.EncodeAll(chunk, nil)
			if err := enc.Close(); err != nil {
				return err
			}
			if opts.Progress != nil {
				opts.Progress(i)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	headerSize := 1 + 2*partSizeLen*parts
	total := headerSize + len(opts.Extra)
	for _, b := range blocks {
		total += len(b)
	}

	payload := make([]byte, 0, total)
	payload = append(payload, byte(parts))
	var scratch [4]byte
	for _, b := range blocks {
		binary.LittleEndian.PutUint32(scratch[:], uint32(len(b)))
		payload = append(payload, scratch[:]...)
	}
	chunkLen := func(i int) int {
		if i == parts-1 {
			return len(image) - i*chunkSize
		}
		return chunkSize
	}
	for i := 0; i < parts; i++ {
		binary.LittleEndian.PutUint32(scratch[:], uint32(chunkLen(i)))
		payload = append(payload, scratch[:]...)
	}
	for _, b := range blocks {
		payload = append(payload, b...)
	}
	payload = append(payload, opts.Extra...)

	return payload, nil
}

// AppendTrailer produces a self-hosting launcher image: the launcher binary,
// the payload, and the 4-byte little-endian trailer holding the payload's
// start offset within the combined file.
func AppendTrailer(launcher, payload []byte) []byte {
	out := make([]byte, 0, len(launcher)+len(payload)+TrailerSize)
	out = append(out, launcher...)
	out = append(out, payload...)
	var trailer [TrailerSize]byte
	binary.LittleEndian.PutUint32(trailer[:], uint32(len(launcher)))
	return append(out, trailer[:]...)
}
