//go:build linux

// zboot is a self-extracting launcher: it locates a zstd-compressed payload
// appended to its own executable, decompresses it into a memory-backed
// executable, and replaces itself with it, passing the invocation through.
package main

import (
	"fmt"
	"os"

	"github.com/flaneur2020/zboot/zboot"
)

func main() {
	// Run replaces the process image and never returns on success.
	err := zboot.Run(zboot.Options{})
	fmt.Fprintf(os.Stderr, "zboot: %v\n", err)
	os.Exit(1)
}
