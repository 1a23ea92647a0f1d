package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-scripts/modulux/internal/types"
)

// DefaultOutputFile is the file name used when no output path is configured
const DefaultOutputFile = "htw_programs_with_modulux_details.json"

// Writer persists the records of a finished run
type Writer interface {
	Write(ctx context.Context, records []types.ListingRecord) error
}

// FileWriter writes all records as one JSON array
type FileWriter struct {
	path string
}

// New creates a FileWriter for path, creating its directory
func New(path string) (*FileWriter, error) {
	if path == "" {
		path = DefaultOutputFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileWriter{path: path}, nil
}

// Path returns the output file path
func (w *FileWriter) Path() string { return w.path }

// Write replaces the output file with records. Non-ASCII text is written
// verbatim as UTF-8.
func (w *FileWriter) Write(ctx context.Context, records []types.ListingRecord) error {
	if records == nil {
		records = []types.ListingRecord{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	if err := os.WriteFile(w.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.path, err)
	}
	return nil
}

// Multi writes to every writer in order and stops at the first error
type Multi []Writer

func (m Multi) Write(ctx context.Context, records []types.ListingRecord) error {
	for _, w := range m {
		if err := w.Write(ctx, records); err != nil {
			return err
		}
	}
	return nil
}
