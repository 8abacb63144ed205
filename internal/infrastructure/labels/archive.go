package labels

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"time"
)

// ErrNoFiles is returned when there is nothing to package
var ErrNoFiles = errors.New("no label files to package")

// File is one entry of a label archive
type File struct {
	Name string
	Data []byte
}

// Package builds a ZIP archive with one entry per file
func Package(files []File) ([]byte, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Now()

	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
