//go:build linux

package zboot

import (
	"os"
	"path/filepath"
	"time"

	"github.com/flaneur2020/zboot/zboot/logger"
)

// Options configure a launch.
type Options struct {
	// Embedded selects the embedded payload strategy when non-nil.
	// Otherwise the launcher inspects its own executable file for a
	// trailing payload.
	Embedded []byte

	// Argv is the original invocation including Argv[0]. Defaults to os.Args.
	Argv []string

	// Log defaults to logger.FromEnv().
	Log *logger.Logger
}

// Run drives the whole launch: locate the payload, parse it, decompress it
// into a memory-backed executable, publish the handoff environment, and
// replace the process image. On success it never returns. Every error it
// does return is fatal; there is no retry or fallback path, a partially
// extracted image must never be executed.
func Run(opts Options) error {
	log := opts.Log
	if log == nil {
		log = logger.FromEnv()
	}
	argv := opts.Argv
	if argv == nil {
		argv = os.Args
	}

	start := time.Now()
	log.Info("Runtime starting")

	appname := filepath.Base(argv[0])

	var src *Source
	var err error
	if opts.Embedded != nil {
		src, err = LocateEmbedded(opts.Embedded)
	} else {
		src, err = LocateSelf()
	}
	if err != nil {
		return err
	}

	payload, err := ParsePayload(src.Payload)
	if err != nil {
		return err
	}
	if len(payload.Extra) > 0 {
		log.Info("Extra data size %d bytes", len(payload.Extra))
	}

	mem, err := NewMemExecutable(appname, payload.TotalSize())
	if err != nil {
		return err
	}

	if err := NewEngine(log).Decompress(payload, mem.Bytes()); err != nil {
		return err
	}
	log.Info("Extraction time: %10.4f ms", millisSince(start))

	if err := mem.Unmap(); err != nil {
		return err
	}
	log.Info("Extraction + write time: %10.4f ms", millisSince(start))

	// The source pages are dead weight from here on. Give them back while
	// the environment is prepared; the release is joined right before the
	// handoff so no unmap is in flight when the image is replaced.
	released := make(chan error, 1)
	go func() { released <- src.Release() }()

	EnvConfig{
		StartTime:   time.Now(),
		MemoryMiB:   MemoryBudgetFromEnv(),
		MemFd:       mem.Fd(),
		ExtraOffset: payload.ExtraOffset(),
		ExtraSize:   len(payload.Extra),
	}.Publish()

	newArgv := append([]string(nil), argv...)
	newArgv[0] = "/" + appname
	os.Setenv("_", newArgv[0])

	if err := <-released; err != nil {
		log.Warn("Failed to release payload mapping: %v", err)
	}

	log.Info("Starting app")

	err = Exec(mem.Fd(), newArgv, os.Environ())
	log.Error("Failed to start executable")
	return err
}

func millisSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
