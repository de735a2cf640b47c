package zboot

// Source is a located, read-only view of the packed payload. Release frees
// whatever backs the view (a no-op for embedded payloads, an munmap for the
// self-inspecting strategy) and must not be called while the payload is
// still being read.
type Source struct {
	Payload []byte
	release func() error
}

// Release frees the backing of the payload view. Safe to call once.
func (s *Source) Release() error {
	if s.release == nil {
		return nil
	}
	release := s.release
	s.release = nil
	return release()
}

// LocateEmbedded wraps payload bytes compiled directly into the launcher
// image. No I/O is involved and Release is a no-op.
func LocateEmbedded(payload []byte) (*Source, error) {
	if len(payload) == 0 {
		return nil, ErrLocate.WithMessage("embedded payload is empty")
	}
	return &Source{Payload: payload}, nil
}

// LocateInImage finds the payload inside a complete self-hosting launcher
// file image using the trailing offset. The returned source aliases the
// image and has no release action of its own.
func LocateInImage(file []byte) (*Source, error) {
	payload, err := ParseTrailer(file)
	if err != nil {
		return nil, err
	}
	return &Source{Payload: payload}, nil
}
