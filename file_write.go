package imagemeta

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/simonhull/imagemeta/internal/version"
)

// Save writes staged metadata changes back to the original file.
//
// This is an atomic operation: writes to a temporary file first, then renames
// to the original path. If any step fails, the original file remains unchanged.
//
// Options can be provided to customize save behavior:
//
//	err := file.Save(
//	    imagemeta.WithBackup(".bak"),
//	    imagemeta.WithValidation(),
//	)
//
// Returns UnsupportedWriteError if the container cannot carry the changes
// (TIFF files are read-only).
func (f *File) Save(opts ...SaveOption) error {
	if f.Path == "" {
		return fmt.Errorf("save: file has no path, use SaveAs")
	}
	return f.SaveAs(f.Path, opts...)
}

// SaveAs writes the file with staged changes to a new location.
//
// This is an atomic operation: writes to a temporary file first, then renames
// to the output path. If any step fails, any partially written data is cleaned up.
//
//	err := file.SaveAs("/new/path/photo.jpg",
//	    imagemeta.WithBackup(".bak"),
//	    imagemeta.WithValidation(),
//	)
func (f *File) SaveAs(outputPath string, opts ...SaveOption) error {
	return f.SaveAsContext(context.Background(), outputPath, opts...)
}

// SaveAsContext is SaveAs with cancellation. The context is checked while
// the file is reconstructed, before anything is written.
func (f *File) SaveAsContext(ctx context.Context, outputPath string, opts ...SaveOption) error { //nolint:gocyclo // Atomic file operations require sequential steps
	// Apply options
	options := defaultSaveOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.requireValid {
		if errs := f.Validate(); len(errs) > 0 {
			var result *multierror.Error
			for _, e := range errs {
				result = multierror.Append(result, e)
			}
			return fmt.Errorf("schema validation: %w", result)
		}
	}

	data, err := f.Bytes(ctx)
	if err != nil {
		return err
	}

	// Get original file's mod time if we need to preserve it
	var origModTime os.FileInfo
	if options.preserveModTime && f.Path != "" {
		info, err := os.Stat(f.Path)
		if err == nil {
			origModTime = info
		}
	}

	// Create temp file in same directory as output (for atomic rename)
	outputDir := filepath.Dir(outputPath)
	tempFile, err := os.CreateTemp(outputDir, ".imagemeta-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	// Ensure cleanup on any error
	success := false
	defer func() {
		if !success {
			_ = tempFile.Close()    //nolint:errcheck // Best effort cleanup
			_ = os.Remove(tempPath) //nolint:errcheck // Best effort cleanup
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	// Sync temp file (fsync) to ensure data is on disk
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	// Close temp file before rename
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Handle backup option (rename original to .bak before replace)
	if options.backupSuffix != "" {
		backupPath := outputPath + options.backupSuffix
		if _, err := os.Stat(outputPath); err == nil {
			if err := os.Rename(outputPath, backupPath); err != nil {
				return fmt.Errorf("create backup: %w", err)
			}
		}
	}

	// Atomic rename temp -> output
	if err := os.Rename(tempPath, outputPath); err != nil {
		return fmt.Errorf("rename temp to output: %w", err)
	}

	// Mark success so defer doesn't clean up
	success = true

	if options.preserveModTime && origModTime != nil {
		_ = os.Chtimes(outputPath, origModTime.ModTime(), origModTime.ModTime()) //nolint:errcheck // Non-fatal: file was written successfully
	}

	// Handle validate option (re-open and compare metadata)
	if options.validate {
		if err := f.validateWrittenFile(outputPath); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	if options.store != nil {
		v, err := options.store.CreateVersion(ctx, f.Snapshot(), options.parentID, options.commit)
		if err != nil {
			return fmt.Errorf("record version: %w", err)
		}
		f.Committed = v
	}

	return nil
}

// validateWrittenFile re-opens the file and compares its metadata snapshot
// with the one the save was meant to produce.
func (f *File) validateWrittenFile(path string) error {
	written, err := Open(path, WithRegistry(f.manager.Registry()))
	if err != nil {
		return fmt.Errorf("re-open: %w", err)
	}
	defer written.Close() //nolint:errcheck // Best effort close

	if err := written.Metadata.Err(); err != nil {
		return fmt.Errorf("written segments do not parse: %w", err)
	}
	want, got := f.Snapshot(), written.Snapshot()
	if !version.Equal(want, got) {
		return fmt.Errorf("metadata mismatch: %d namespaces differ",
			len(version.Diff(want, got)))
	}
	return nil
}
