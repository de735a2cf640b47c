package zboot

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/flaneur2020/zboot/zboot/logger"
)

// Engine decompresses a parsed payload into a destination buffer, one task
// per part writing into disjoint ranges.
type Engine struct {
	log *logger.Logger
}

// NewEngine builds an engine logging through the given logger.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// Decompress fills dst with the decompressed image followed by the extra
// segment. dst must be exactly p.TotalSize() bytes.
//
// With a single part the work runs synchronously on the calling goroutine;
// with multiple parts one goroutine per part is spawned, each owning its
// disjoint source and destination ranges so no locking is needed. The task
// for part 0 additionally copies the extra segment, overlapping the copy
// with the parallel decompression window instead of serializing it after
// the join.
func (e *Engine) Decompress(p *Payload, dst []byte) error {
	if len(dst) != p.TotalSize() {
		return ErrDecompress.
			WithMessage("destination buffer size mismatch").
			WithDetail("want", p.TotalSize()).
			WithDetail("have", len(dst))
	}

	decOpts := []zstd.DOption{zstd.WithDecoderConcurrency(len(p.Parts))}
	if p.UncompressedSize > 0 {
		// No part may legitimately inflate beyond the whole image.
		decOpts = append(decOpts, zstd.WithDecoderMaxMemory(uint64(p.UncompressedSize)))
	}
	dec, err := zstd.NewReader(nil, decOpts...)
	if err != nil {
		return ErrDecompress.WithCause(err)
	}
	defer dec.Close()

	if len(p.Parts) == 1 {
		e.log.Info("Decompressing")
		if len(p.Extra) > 0 {
			copy(dst[p.ExtraOffset():], p.Extra)
		}
		return decompressPart(dec, p, 0, dst)
	}

	e.log.Info("Decompressing using %d threads", len(p.Parts))

	var eg errgroup.Group
	for i := range p.Parts {
		i := i
		eg.Go(func() error {
			if i == 0 && len(p.Extra) > 0 {
				copy(dst[p.ExtraOffset():], p.Extra)
			}
			return decompressPart(dec, p, i, dst)
		})
	}
	return eg.Wait()
}

// decompressPart inflates part i into its destination range. The output
// slice is capacity-limited to the declared size, so a part that inflates
// beyond its range fails instead of spilling into a neighbour.
func decompressPart(dec *zstd.Decoder, p *Payload, i int, dst []byte) error {
	part := p.Parts[i]
	src := p.Blocks[part.InputOffset : part.InputOffset+part.InputSize]
	out := dst[part.OutputOffset : part.OutputOffset : part.OutputOffset+part.OutputSize]

	decoded, err := dec.DecodeAll(src, out)
	if err != nil {
		return ErrDecompress.
			WithDetail("part", i).
			WithCause(err)
	}
	if len(decoded) != int(part.OutputSize) {
		return ErrDecompress.
			WithDetail("part", i).
			WithCause(fmt.Errorf("decompressed %d bytes, expected %d", len(decoded), part.OutputSize))
	}
	return nil
}
