package capture

import (
	"fmt"
	"io"
	"os"
)

// FileSink appends raw bytes to a file.
type FileSink struct {
	w    io.WriteCloser
	path string
}

// NewFileSink opens path in append mode, creating it if needed.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	return &FileSink{w: f, path: path}, nil
}

func (s *FileSink) Write(c Chunk) error {
	if _, err := s.w.Write(c.Data); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) Close() error {
	return s.w.Close()
}
