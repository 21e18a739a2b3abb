// Package imagemeta extracts, preserves and versions the metadata embedded
// in image files.
//
// It reads EXIF (TIFF IFD structures), IPTC-IIM datasets and XMP packets
// from JPEG, PNG, TIFF and WebP containers, validates them against a schema
// registry, writes modified metadata back without disturbing anything it
// was not asked to change, and keeps a version history of metadata
// snapshots with deltas and three-way merges.
//
// # Quick Start
//
// Reading metadata from an image:
//
//	file, err := imagemeta.Open("photo.jpg")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer file.Close()
//
//	if o, ok := imagemeta.GetTag[uint16](file.Exif(), "Orientation"); ok {
//		fmt.Println("orientation:", o)
//	}
//	caption, _ := file.IPTC().String("Caption")
//	fmt.Println("caption:", caption)
//
// # Supported Containers
//
//   - JPEG: APP1 Exif and XMP, APP13 Photoshop IPTC, COM comments
//   - PNG: eXIf, tEXt, zTXt and iTXt chunks (XMP in iTXt)
//   - TIFF: the file itself is the EXIF structure (read-only)
//   - WebP: EXIF and XMP chunks of the extended format
//
// # Preservation
//
// Every metadata segment is kept as raw bytes next to its parsed form. A
// segment that fails to parse is reported in PreservedMetadata.Errors and
// written back verbatim. Reconstruct copies image data and untouched
// segments byte for byte, so a file saved without modifications is
// identical to the original.
//
//	file.SetIPTC(doc)       // replace the first IPTC segment
//	err := file.SaveAs("out.jpg", imagemeta.WithBackup(".bak"))
//
// # Versioning
//
// Snapshot flattens the parsed metadata into namespace/property pairs.
// A VersionStore records snapshots as a tree, storing a delta against the
// parent when it is small, and merges two branches against their common
// base:
//
//	store := imagemeta.NewVersionStore()
//	v1, _ := store.CreateVersion(ctx, file.Snapshot(), "", imagemeta.CommitInfo{Author: "ana"})
//	merged, err := store.Merge(ctx, base, a, b, imagemeta.PreferA)
//
// # Error Handling
//
// Container-level failures are returned as errors. Problems inside a
// segment become warnings or segment errors and never stop extraction.
//
//	file, err := imagemeta.Open("photo.jpg")
//	var corrupt *imagemeta.CorruptedFileError
//	if errors.As(err, &corrupt) {
//		fmt.Printf("corrupted at offset %d\n", corrupt.Offset)
//	}
//	for _, w := range file.Warnings {
//		fmt.Println("warning:", w)
//	}
//
// # Thread Safety
//
// File is not safe for concurrent modification. Open, Extract and the
// parsers may be called concurrently; OpenMany opens files in parallel.
// The schema registry serves lookups without locking, and a VersionStore
// may be shared between goroutines.
package imagemeta
