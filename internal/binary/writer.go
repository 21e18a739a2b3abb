package binary

import (
	"io"
)

// SafeWriter wraps io.Writer with position tracking.
//
// Reconstruction writes a container front to back; the tracked offset lets
// framers record where each segment landed.
type SafeWriter struct {
	w      io.Writer
	offset int64
}

// NewSafeWriter creates a new SafeWriter.
func NewSafeWriter(w io.Writer) *SafeWriter {
	return &SafeWriter{w: w}
}

// Offset returns the current position (number of bytes written).
func (sw *SafeWriter) Offset() int64 {
	return sw.offset
}

// WriteBytes writes raw bytes to the underlying writer.
func (sw *SafeWriter) WriteBytes(b []byte) error {
	n, err := sw.w.Write(b)
	sw.offset += int64(n)
	return err
}

// CopyRange copies n bytes starting at off from src.
func (sw *SafeWriter) CopyRange(src io.ReaderAt, off, n int64) error {
	if n <= 0 {
		return nil
	}
	written, err := io.Copy(sw.w, io.NewSectionReader(src, off, n))
	sw.offset += written
	if err != nil {
		return err
	}
	if written != n {
		return io.ErrUnexpectedEOF
	}
	return nil
}
