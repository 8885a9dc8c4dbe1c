// Package writer exposes sinks for tablespace file emission.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileWriter writes tablespace bytes to a filesystem path atomically.
type FileWriter struct {
	Path string
}

// WriteFile writes buf to the configured path atomically via temp file + rename.
func (w *FileWriter) WriteFile(buf []byte) error {
	// Create temp file in same directory to ensure atomic rename
	dir := filepath.Dir(w.Path)
	tmpFile, err := os.CreateTemp(dir, ".idbkit-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(buf); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil // Don't clean up in defer

	if err := os.Rename(tmpPath, w.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Backup copies the file at path to path+".bak" before any destructive write.
func Backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read source for backup: %w", err)
	}
	fw := &FileWriter{Path: path + ".bak"}
	return fw.WriteFile(data)
}
