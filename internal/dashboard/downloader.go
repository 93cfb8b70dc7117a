package dashboard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDownloader saves reports into Dir.
type FileDownloader struct {
	Dir string

	// LastPath is the file written by the most recent Download.
	LastPath string
}

func NewFileDownloader(dir string) *FileDownloader {
	return &FileDownloader{Dir: dir}
}

func (d *FileDownloader) Download(_ context.Context, filename string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid report filename %q", filename)
	}

	path := filepath.Join(d.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	d.LastPath = path
	return nil
}
