package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"chaptersnap/internal/chapter"
	"chaptersnap/internal/formatter"
	"chaptersnap/internal/scraper"
)

// ErrWrite wraps any failure to create directories or write a file.
var ErrWrite = errors.New("filesystem write failed")

// JSONPath returns <dir>/<id>.json.
func JSONPath(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

// ScreenshotPath returns <dir>/screenshots/<id>.png.
func ScreenshotPath(dir, id string) string {
	return filepath.Join(dir, "screenshots", id+".png")
}

// WriteFile creates the parent directories of path and writes data,
// replacing any existing file.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %w", ErrWrite, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write to file: %w", ErrWrite, err)
	}
	return nil
}

// WriteJSON serializes rec to path as indented UTF-8 JSON.
func WriteJSON(path string, rec *chapter.Record) error {
	data, err := rec.ToJSON()
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// WriteExports renders content in each format to <dir>/<id>.<ext> and
// returns the written paths in the same order.
func WriteExports(dir, id string, content scraper.Content, formats []string) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		rendered, err := formatter.Format(content, format)
		if err != nil {
			return paths, fmt.Errorf("failed to format output: %w", err)
		}
		path := filepath.Join(dir, id+"."+formatter.Extension(format))
		if err := WriteFile(path, []byte(rendered)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
