package browserdrv

import (
	"os"
	"path/filepath"
)

// writeTempFile materializes a decoded upload payload on disk: CDP's
// DOM.setFileInputFiles takes file paths, not bytes, so fileSelect
// actions must round-trip through the filesystem.
func writeTempFile(name string, contents []byte) (string, error) {
	dir, err := os.MkdirTemp("", "uiflow-upload-*")
	if err != nil {
		return "", err
	}
	if name == "" {
		name = "upload.bin"
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
