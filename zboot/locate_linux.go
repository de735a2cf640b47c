//go:build linux

package zboot

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LocateSelf maps the running launcher's own executable file read-only and
// resolves the payload through the trailing offset. This is the
// self-hosting strategy: the payload travels appended to the launcher.
func LocateSelf() (*Source, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, ErrLocate.WithCause(err)
	}
	if p, err := filepath.EvalSymlinks(path); err == nil {
		path = p
	}
	return LocateInFile(path)
}

// LocateInFile maps an arbitrary self-hosting launcher file. The file
// descriptor is closed right after mapping; the source's Release unmaps.
func LocateInFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrLocate.WithCause(err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, ErrLocate.WithCause(err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, ErrLocate.
			WithMessage("failed to map launcher file").
			WithDetail("path", path).
			WithDetail("size", st.Size()).
			WithCause(err)
	}

	payload, err := ParseTrailer(data)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}

	return &Source{
		Payload: payload,
		release: func() error { return unix.Munmap(data) },
	}, nil
}
