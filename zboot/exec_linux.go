//go:build linux

package zboot

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Exec replaces the current process image with the executable addressed by
// fd, the equivalent of fexecve(3), passing argv and env through to the new
// image. It does not return on success; any return value is a fatal error.
func Exec(fd int, argv, env []string) error {
	argvp, err := syscall.SlicePtrFromStrings(argv)
	if err != nil {
		return ErrExec.WithCause(err)
	}
	envp, err := syscall.SlicePtrFromStrings(env)
	if err != nil {
		return ErrExec.WithCause(err)
	}
	empty, err := syscall.BytePtrFromString("")
	if err != nil {
		return ErrExec.WithCause(err)
	}

	_, _, errno := unix.Syscall6(unix.SYS_EXECVEAT,
		uintptr(fd),
		uintptr(unsafe.Pointer(empty)),
		uintptr(unsafe.Pointer(&argvp[0])),
		uintptr(unsafe.Pointer(&envp[0])),
		uintptr(unix.AT_EMPTY_PATH),
		0,
	)
	return ErrExec.WithDetail("fd", fd).WithCause(errno)
}
