package version

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const recordExt = ".json.zst"

// FileBackend stores each version as a zstd-compressed JSON file named by
// its id. Writes go to a temporary file that is renamed into place, so a
// record either exists completely or not at all.
type FileBackend struct {
	dir string
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewFileBackend opens (creating if needed) a record directory.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("version: create store directory: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &FileBackend{dir: dir, enc: enc, dec: dec}, nil
}

// Close releases the codec resources.
func (f *FileBackend) Close() error {
	f.dec.Close()
	return f.enc.Close()
}

func (f *FileBackend) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("version: invalid id %q: %w", id, err)
	}
	return filepath.Join(f.dir, id+recordExt), nil
}

func (f *FileBackend) Put(ctx context.Context, v *Version) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.path(v.ID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return ErrExists
	}

	data, err := encodeVersion(v)
	if err != nil {
		return err
	}
	compressed := f.enc.EncodeAll(data, nil)

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("version: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return fmt.Errorf("version: write record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("version: sync record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("version: close record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("version: commit record: %w", err)
	}
	return nil
}

func (f *FileBackend) Get(ctx context.Context, id string) (*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.path(id)
	if err != nil {
		return nil, ErrNotFound
	}
	compressed, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	data, err := f.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("version: decompress %s: %w", id, err)
	}
	return decodeVersion(data)
}

func (f *FileBackend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if id, ok := strings.CutSuffix(e.Name(), recordExt); ok && !e.IsDir() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
