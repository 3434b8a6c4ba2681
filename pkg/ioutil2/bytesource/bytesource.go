// Package bytesource defines the byte-addressable source abstraction that
// the core reconstruction engine reads from, and provides a ready-to-use
// implementation over any io.ReaderAt.
package bytesource

import (
	"fmt"
	"io"

	"github.com/deploymenttheory/go-vshadow/pkg/vserrors"
)

// Source is a positioned, read-only byte source. All offsets are absolute
// within the source. A short read is reported as an error rather than a
// partial result — callers never have to distinguish a short read from a
// full one.
type Source interface {
	// ReadAt reads exactly len(p) bytes starting at off, or returns an
	// error (including io.EOF translated to a *vserrors.Error of Kind Io)
	// if that many bytes are not available.
	ReadAt(p []byte, off int64) error
	// Size returns the total size of the source in bytes.
	Size() (int64, error)
	// Close releases any resources held by the source.
	Close() error
}

// ReaderAtSource adapts any io.ReaderAt (e.g. *os.File) plus a declared
// size into a Source. It implements the "positioned reads, no shared seek
// cursor" requirement directly, since io.ReaderAt is itself
// concurrency-safe for independent offsets.
type ReaderAtSource struct {
	r      io.ReaderAt
	size   int64
	closer io.Closer
}

// NewReaderAtSource wraps r, which must support io.ReaderAt, declaring its
// total size as size. If r also implements io.Closer, Close releases it.
func NewReaderAtSource(r io.ReaderAt, size int64) *ReaderAtSource {
	s := &ReaderAtSource{r: r, size: size}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// ReadAt implements Source.
func (s *ReaderAtSource) ReadAt(p []byte, off int64) error {
	if off < 0 {
		return vserrors.New(vserrors.Argument, "negative offset")
	}
	n, err := s.r.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return vserrors.Wrap(vserrors.Io, fmt.Sprintf("read %d bytes at %d", len(p), off), err)
	}
	if n != len(p) {
		return vserrors.New(vserrors.Io, fmt.Sprintf("short read: wanted %d bytes at %d, got %d", len(p), off, n))
	}
	return nil
}

// Size implements Source.
func (s *ReaderAtSource) Size() (int64, error) {
	return s.size, nil
}

// Close implements Source.
func (s *ReaderAtSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Offset returns a view of parent that is shifted by off bytes and bounded
// to size bytes, so a VSS volume embedded inside a larger partition image
// can be addressed with volume-relative offsets.
func Offset(parent Source, off int64, size int64) Source {
	return &offsetSource{parent: parent, off: off, size: size}
}

type offsetSource struct {
	parent Source
	off    int64
	size   int64
}

func (s *offsetSource) ReadAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > s.size {
		return vserrors.New(vserrors.OutOfBounds, fmt.Sprintf("read %d bytes at %d exceeds bound %d", len(p), off, s.size))
	}
	return s.parent.ReadAt(p, s.off+off)
}

func (s *offsetSource) Size() (int64, error) {
	return s.size, nil
}

func (s *offsetSource) Close() error {
	return s.parent.Close()
}
