package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/simonhull/imagemeta"
	"github.com/simonhull/imagemeta/internal/logger"
)

// Prints the segment map of an image and whatever each segment decoded to.
// Set IMAGEMETA_DEBUG=1 to log segment events to stderr.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: imagemeta-dump <image> | -version")
		os.Exit(1)
	}
	if os.Args[1] == "-version" {
		info := imagemeta.GetVersionInfo()
		fmt.Printf("imagemeta %s (%s, built %s, commit %s)\n", info.Version, info.GoVersion, info.BuildTime, info.GitCommit)
		return
	}

	var opts []imagemeta.Option
	if os.Getenv("IMAGEMETA_DEBUG") != "" {
		l := logger.New(logger.Config{Level: "debug", Pretty: true, Output: os.Stderr})
		opts = append(opts, imagemeta.WithLogger(*l.Zerolog()))
	}

	file, err := imagemeta.OpenContext(context.Background(), os.Args[1], opts...)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	fmt.Printf("%s (%s, %d bytes)\n", file.Path, file.Format, file.Size)
	if ext := strings.ToLower(filepath.Ext(file.Path)); !slices.Contains(file.Format.Extensions(), ext) {
		fmt.Printf("note: %s content with a %q extension\n", file.Format, ext)
	}
	for _, seg := range file.Metadata.Segments {
		dumpSegment(seg)
	}

	for _, w := range file.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range file.Validate() {
		fmt.Printf("invalid: %s\n", e)
	}
}

func dumpSegment(seg *imagemeta.Segment) {
	loc := seg.Location
	fmt.Printf("[%d] %-4s %-7s (size: %d, offset: %d)", seg.Index, loc.Marker, seg.Type(), loc.Length, loc.Offset)
	if loc.Compressed {
		fmt.Print(" deflate")
	}
	fmt.Println()

	const indent = "    "
	switch {
	case seg.Err != nil:
		fmt.Printf("%skept raw: %v\n", indent, seg.Err)
	case seg.Exif != nil:
		for _, tag := range seg.Exif.Tags {
			fmt.Printf("%s%s/%s = %v\n", indent, tag.Group, tag.Name, short(tag.Value))
		}
		for _, tag := range seg.Exif.Unknown {
			fmt.Printf("%s0x%04X (unknown, %d bytes)\n", indent, tag.ID, len(tag.Raw))
		}
		if seg.Exif.GPS != nil {
			fmt.Printf("%sGPS %.6f, %.6f\n", indent, seg.Exif.GPS.Latitude, seg.Exif.GPS.Longitude)
		}
		if n := len(seg.Exif.Thumbnail); n > 0 {
			fmt.Printf("%sthumbnail: %d bytes\n", indent, n)
		}
	case seg.IPTC != nil:
		fields := seg.IPTC.Fields()
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s%s = %v\n", indent, name, fields[name])
		}
	case seg.XMP != nil:
		for _, q := range seg.XMP.Names() {
			v, _ := seg.XMP.Get(q)
			fmt.Printf("%s%s = %v\n", indent, q, short(v))
		}
	case seg.Text != nil:
		fmt.Printf("%s%s = %q\n", indent, seg.Text.Keyword, short(seg.Text.Value))
	}
}

func short(v any) string {
	s := fmt.Sprint(v)
	if len(s) > 72 {
		s = s[:69] + "..."
	}
	return strings.ReplaceAll(s, "\n", " ")
}
