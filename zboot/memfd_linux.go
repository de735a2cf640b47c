//go:build linux

package zboot

import "golang.org/x/sys/unix"

// MemExecutable is an anonymous, descriptor-addressable memory region used
// as the target of process-image replacement. It never touches a filesystem
// path; the kernel reclaims it when the descriptor and mapping go away or
// when the process image is replaced.
type MemExecutable struct {
	fd   int
	data []byte
	name string
}

// NewMemExecutable creates a memfd of the given size, mapped writable and
// shared so that everything written through Bytes is visible through the
// descriptor. The name only shows up in /proc for diagnostics.
//
// The descriptor is deliberately created without MFD_CLOEXEC: it must
// survive the handoff so the next image can reopen it via LLRT_MEM_FD.
func NewMemExecutable(name string, size int) (*MemExecutable, error) {
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, ErrMemExecutable.
			WithMessage("memfd_create failed").
			WithCause(err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, ErrMemExecutable.
			WithMessage("failed to size memory-backed executable").
			WithDetail("size", size).
			WithCause(err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, ErrMemExecutable.
			WithMessage("failed to map memory-backed executable; make sure enough memory is available").
			WithDetail("size", size).
			WithCause(err)
	}
	return &MemExecutable{fd: fd, data: data, name: name}, nil
}

// Fd returns the descriptor that addresses the region.
func (m *MemExecutable) Fd() int {
	return m.fd
}

// Bytes returns the writable mapping of the region. Invalid after Unmap.
func (m *MemExecutable) Bytes() []byte {
	return m.data
}

// Unmap releases the writable mapping once filling is done. The descriptor
// stays open: it is the executable image handed to Exec.
func (m *MemExecutable) Unmap() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return ErrMemExecutable.
			WithMessage("failed to unmap memory-backed executable").
			WithCause(err)
	}
	return nil
}

// Close releases both the mapping and the descriptor. Only used on failure
// paths and in tests; a successful launch never comes back to close it.
func (m *MemExecutable) Close() error {
	err := m.Unmap()
	if m.fd >= 0 {
		if cerr := unix.Close(m.fd); cerr != nil && err == nil {
			err = cerr
		}
		m.fd = -1
	}
	return err
}
