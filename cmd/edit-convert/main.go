// cmd/edit-convert applies the editing pipeline to a local file without
// running the full editord service.
//
// Usage:
//
//	./edit-convert -input photo.jpg -filter clarendon -output out.jpg
//	./edit-convert -input clip.mp4 -filter lofi -trim-start 2 -trim-end 8
//	./edit-convert -input clip.mp4 -probe  # Show metadata only
//	./edit-convert -list                   # List available filters
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/reelworks/reeledit/internal/export"
	"github.com/reelworks/reeledit/internal/filter"
	"github.com/reelworks/reeledit/internal/media"
	"github.com/reelworks/reeledit/internal/timeline"
	"github.com/reelworks/reeledit/internal/transform"
)

func main() {
	input := flag.String("input", "", "Input file path (required)")
	output := flag.String("output", "", "Output path (default: input_edited.<ext>)")
	filterID := flag.String("filter", "normal", "Filter to apply")
	intensity := flag.Int("intensity", 100, "Filter intensity (0-100)")
	rotations := flag.Int("rotate", 0, "Clockwise 90-degree rotations (photos only)")
	trimStart := flag.Float64("trim-start", 0, "Trim start in seconds (videos only)")
	trimEnd := flag.Float64("trim-end", 0, "Trim end in seconds (videos only, 0 = clip end)")
	probe := flag.Bool("probe", false, "Show file metadata only (don't convert)")
	list := flag.Bool("list", false, "List available filters and exit")
	timeout := flag.Int("timeout", 120, "Conversion timeout in seconds")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	if *list {
		for _, entry := range filter.List() {
			fmt.Printf("  %-12s %s\n", entry.ID, entry.DisplayName)
		}
		return
	}

	if *input == "" {
		fmt.Println("Error: -input flag is required")
		flag.Usage()
		os.Exit(1)
	}

	stat, err := os.Stat(*input)
	if err != nil {
		log.Fatalf("❌ Input file not found: %s", *input)
	}

	mimeType, err := media.DetectMime(*input)
	if err != nil {
		log.Fatalf("❌ Failed to detect file type: %v", err)
	}
	kind, err := media.Validate(filepath.Base(*input), stat.Size(), mimeType)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if *verbose {
		fmt.Printf("📄 Input: %s\n", *input)
		fmt.Printf("🔍 MIME type: %s (%s)\n", mimeType, kind)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Second)
	defer cancel()

	info, err := media.Probe(ctx, *input, kind)
	if err != nil {
		log.Fatalf("❌ Failed to probe file: %v", err)
	}

	if *probe {
		fmt.Println("\n📊 File Metadata:")
		fmt.Println(strings.Repeat("-", 40))
		printInfo(info)
		return
	}

	if !filter.Known(*filterID) {
		log.Fatalf("❌ Unknown filter %q (use -list to see filters)", *filterID)
	}
	ft := filter.ComputeTransform(*filterID, *intensity)

	if *output == "" {
		ext := filepath.Ext(*input)
		*output = strings.TrimSuffix(*input, ext) + "_edited" + ext
	}

	fmt.Printf("\n🎨 Applying %s...\n", *filterID)
	start := time.Now()

	switch kind {
	case media.KindPhoto:
		err = convertPhoto(*input, *output, ft, *rotations)
	case media.KindVideo:
		err = convertVideo(ctx, *input, *output, ft, info.Duration, *trimStart, *trimEnd, *verbose)
	}
	if err != nil {
		log.Fatalf("❌ Conversion failed: %v", err)
	}

	outStat, err := os.Stat(*output)
	if err != nil {
		log.Fatalf("❌ Failed to read output file: %v", err)
	}

	fmt.Printf("\n✅ Done!\n")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("📁 Output: %s\n", *output)
	fmt.Printf("📏 Size: %s\n", formatBytes(outStat.Size()))
	fmt.Printf("⏱️  Time: %v\n", time.Since(start).Round(time.Millisecond))
}

func convertPhoto(input, output string, ft filter.Transform, rotations int) error {
	img, err := imaging.Open(input, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	var state transform.State
	for i := 0; i < rotations; i++ {
		state.RotateClockwise()
	}

	out, err := export.ComposeImage(export.ImageInputs{
		Base:      img,
		Transform: state,
		Filter:    ft,
	})
	if err != nil {
		return err
	}
	return imaging.Save(out, output, imaging.JPEGQuality(export.JPEGQuality))
}

func convertVideo(ctx context.Context, input, output string, ft filter.Transform, duration, trimStart, trimEnd float64, verbose bool) error {
	if !export.FFmpegAvailable() {
		return fmt.Errorf("ffmpeg not found in PATH")
	}

	trim, err := timeline.NewTrimState(duration)
	if err != nil {
		return err
	}
	if trimStart > 0 {
		trim.SetStart(trimStart)
	}
	if trimEnd > 0 {
		trim.SetEnd(trimEnd)
	}

	var progress func(float64)
	if verbose {
		progress = func(f float64) {
			fmt.Printf("\r🎬 %.0f%%", f*100)
		}
	}

	res, err := export.ExportVideo(ctx, export.VideoInputs{
		SourcePath: input,
		Duration:   duration,
		Trim:       trim,
		Filter:     ft,
	}, progress)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Println()
	}
	if err := os.Rename(res.Path, output); err != nil {
		// Cross-device rename fails; fall back to copy.
		data, readErr := os.ReadFile(res.Path)
		if readErr != nil {
			return readErr
		}
		defer os.Remove(res.Path)
		return os.WriteFile(output, data, 0o644)
	}
	return nil
}

func printInfo(info *media.Info) {
	fmt.Printf("MIME Type: %s\n", info.MimeType)
	if info.Width > 0 && info.Height > 0 {
		fmt.Printf("Dimensions: %dx%d pixels\n", info.Width, info.Height)
	}
	if info.Duration > 0 {
		fmt.Printf("Duration: %.2f seconds (%s)\n", info.Duration, formatDuration(info.Duration))
	}
	if info.Size > 0 {
		fmt.Printf("File Size: %s (%.2f MB)\n", formatBytes(info.Size), float64(info.Size)/(1024*1024))
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatDuration(seconds float64) string {
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%02d:%02d", mins, secs)
}
