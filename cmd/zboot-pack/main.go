// zboot-pack is the offline packer for zboot launchers. It compresses an
// executable image into the payload layout the launcher extracts at cold
// start, optionally appending it to a launcher binary as a self-hosting
// image.
package main

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/flaneur2020/zboot/zboot"
)

var (
	parts      int
	level      string
	extraPath  string
	launcher   string
	selfHosted bool
	wantDigest string
	noProgress bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "zboot-pack",
		Short: "Pack executables into zboot self-extracting payloads",
	}

	packCmd := &cobra.Command{
		Use:   "pack <INPUT> <OUTPUT>",
		Short: "Compress an executable image into a payload",
		Args:  cobra.ExactArgs(2),
		Run:   runPack,
	}
	packCmd.Flags().IntVar(&parts, "parts", zboot.DefaultParts, "Number of independently compressed parts (1-255)")
	packCmd.Flags().StringVar(&level, "level", "best", "Compression level: fastest, default, better, best")
	packCmd.Flags().StringVar(&extraPath, "extra", "", "File appended verbatim as the extra segment (e.g. bytecode)")
	packCmd.Flags().StringVar(&launcher, "launcher", "", "Launcher binary to prepend, producing a self-hosting image")
	packCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	inspectCmd := &cobra.Command{
		Use:   "inspect <FILE>",
		Short: "Print the payload header of a payload or self-hosting image",
		Args:  cobra.ExactArgs(1),
		Run:   runInspect,
	}
	inspectCmd.Flags().BoolVar(&selfHosted, "self", false, "Treat FILE as a self-hosting launcher image")

	unpackCmd := &cobra.Command{
		Use:   "unpack <FILE> <OUTPUT>",
		Short: "Decompress a payload back into the original image",
		Args:  cobra.ExactArgs(2),
		Run:   runUnpack,
	}
	unpackCmd.Flags().BoolVar(&selfHosted, "self", false, "Treat FILE as a self-hosting launcher image")
	unpackCmd.Flags().StringVar(&wantDigest, "digest", "", "Expected sha256 digest of the decompressed image")

	rootCmd.AddCommand(packCmd, inspectCmd, unpackCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPack(cmd *cobra.Command, args []string) {
	inputPath, outputPath := args[0], args[1]

	image, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	var extra []byte
	if extraPath != "" {
		if extra, err = os.ReadFile(extraPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading extra segment: %v\n", err)
			os.Exit(1)
		}
	}

	ok, encoderLevel := zstd.EncoderLevelFromString(level)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown compression level %q\n", level)
		os.Exit(1)
	}

	opts := zboot.PackOptions{
		Parts: parts,
		Level: encoderLevel,
		Extra: extra,
	}
	if !noProgress {
		bar := progressbar.Default(int64(parts), "compressing")
		opts.Progress = func(int) { _ = bar.Add(1) }
	}

	payload, err := zboot.Pack(image, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error packing: %v\n", err)
		os.Exit(1)
	}

	output := payload
	if launcher != "" {
		launcherImage, err := os.ReadFile(launcher)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading launcher: %v\n", err)
			os.Exit(1)
		}
		output = zboot.AppendTrailer(launcherImage, payload)
	}

	if err := os.WriteFile(outputPath, output, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Packed %d bytes into %d parts, %d bytes compressed (%.1f%%)\n",
		len(image), parts, len(payload), float64(len(payload))*100/float64(len(image)))
	fmt.Printf("Image digest: %s\n", digest.FromBytes(image))
	if len(extra) > 0 {
		fmt.Printf("Extra segment: %d bytes, digest %s\n", len(extra), digest.FromBytes(extra))
	}
}

func loadPayload(path string) *zboot.Payload {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	if selfHosted {
		if data, err = zboot.ParseTrailer(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing trailer: %v\n", err)
			os.Exit(1)
		}
	}
	payload, err := zboot.ParsePayload(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing payload: %v\n", err)
		os.Exit(1)
	}
	return payload
}

func runInspect(cmd *cobra.Command, args []string) {
	payload := loadPayload(args[0])

	fmt.Printf("Parts: %d\n", len(payload.Parts))
	for i, part := range payload.Parts {
		fmt.Printf("%d: compressed %d bytes at %d, decompressed %d bytes at %d\n",
			i, part.InputSize, part.InputOffset, part.OutputSize, part.OutputOffset)
	}
	fmt.Printf("Uncompressed size: %d bytes\n", payload.UncompressedSize)
	if len(payload.Extra) > 0 {
		fmt.Printf("Extra segment: %d bytes at offset %d\n", len(payload.Extra), payload.ExtraOffset())
	}
}

func runUnpack(cmd *cobra.Command, args []string) {
	payload := loadPayload(args[0])
	outputPath := args[1]

	dst := make([]byte, payload.TotalSize())
	engine := zboot.NewEngine(nil)
	if err := engine.Decompress(payload, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Error decompressing: %v\n", err)
		os.Exit(1)
	}

	image := dst[:payload.UncompressedSize]
	got := digest.FromBytes(image)
	if wantDigest != "" && got.String() != wantDigest {
		fmt.Fprintf(os.Stderr, "Digest mismatch: got %s, want %s\n", got, wantDigest)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, image, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Unpacked %d bytes, digest %s\n", len(image), got)

	if len(payload.Extra) > 0 {
		extraOut := outputPath + ".extra"
		if err := os.WriteFile(extraOut, dst[payload.ExtraOffset():], 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing extra segment: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Extra segment: %d bytes written to %s\n", len(payload.Extra), extraOut)
	}
}
