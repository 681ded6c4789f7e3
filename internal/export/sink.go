// Package export delivers rendered posts: to a directory, to a writer such
// as an HTTP response, or to memory.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink accepts a finished PNG under a suggested filename
type Sink interface {
	Export(ctx context.Context, data []byte, filename string) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, data []byte, filename string) error

func (f SinkFunc) Export(ctx context.Context, data []byte, filename string) error {
	return f(ctx, data, filename)
}

// FileSink writes artifacts into Dir. Files appear atomically: the data is
// written to a temp file in Dir and renamed into place.
type FileSink struct {
	Dir string
}

// NewFileSink creates a file sink, creating dir if needed
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

func (s *FileSink) Export(ctx context.Context, data []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid filename: %q", filename)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	return nil
}

// Path returns where filename ends up
func (s *FileSink) Path(filename string) string {
	return filepath.Join(s.Dir, filepath.Base(filename))
}

// WriterSink streams the artifact to W. Before, when set, is called with
// the filename and size ahead of the first byte, e.g. to set headers.
type WriterSink struct {
	W      io.Writer
	Before func(filename string, size int)
}

func (s *WriterSink) Export(ctx context.Context, data []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Before != nil {
		s.Before(filename, len(data))
	}
	if _, err := s.W.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

// Artifact is one export held by a MemorySink
type Artifact struct {
	Filename string
	Data     []byte
	At       time.Time
}

// MemorySink keeps every exported artifact
type MemorySink struct {
	mu        sync.Mutex
	artifacts []Artifact
}

func (s *MemorySink) Export(ctx context.Context, data []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.artifacts = append(s.artifacts, Artifact{
		Filename: filename,
		Data:     append([]byte(nil), data...),
		At:       time.Now(),
	})
	return nil
}

// Artifacts returns copies of the stored artifacts
func (s *MemorySink) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Last returns the most recent artifact
func (s *MemorySink) Last() (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.artifacts) == 0 {
		return Artifact{}, false
	}
	return s.artifacts[len(s.artifacts)-1], true
}
