package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalUploader copies export files into a directory on the local filesystem.
type LocalUploader struct {
	path string
}

func NewLocalUploader(path string) *LocalUploader {
	return &LocalUploader{path: path}
}

func (u *LocalUploader) Name() string { return "local directory " + u.path }

// Upload writes to a temporary file in the target directory and renames it
// into place, so a failed write never leaves a partial file under filename.
func (u *LocalUploader) Upload(ctx context.Context, filename string, content io.Reader) error {
	if err := os.MkdirAll(u.path, 0o755); err != nil {
		return &DeliveryError{Target: u.Name(), Err: err}
	}

	tmp, err := os.CreateTemp(u.path, filename+".partial")
	if err != nil {
		return &DeliveryError{Target: u.Name(), Err: err}
	}

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &DeliveryError{Target: u.Name(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &DeliveryError{Target: u.Name(), Err: err}
	}

	if err := os.Rename(tmp.Name(), filepath.Join(u.path, filename)); err != nil {
		os.Remove(tmp.Name())
		return &DeliveryError{Target: u.Name(), Err: err}
	}

	return nil
}

func (u *LocalUploader) TestConnection(ctx context.Context) error {
	if err := os.MkdirAll(u.path, 0o755); err != nil {
		return fmt.Errorf("target directory %s is not writable: %w", u.path, err)
	}

	info, err := os.Stat(u.path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("target path %s is not a directory", u.path)
	}

	return nil
}
