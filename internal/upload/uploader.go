// Package upload delivers finished export files to the configured target.
package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/hudmol/yale-accession-marc-export/config"
)

// DeliveryError wraps any transport failure (auth, connectivity, I/O).
// A failed delivery never leaves a partial object at the destination.
type DeliveryError struct {
	Target string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Uploader stores bytes under a name at the delivery target.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) error
	TestConnection(ctx context.Context) error
	Name() string
}

// ForConfig picks the backend once at startup.
func ForConfig(cfg *config.Config) (Uploader, error) {
	switch cfg.Target {
	case config.TargetS3:
		return NewS3Uploader(cfg.S3)
	case config.TargetSFTP:
		return NewSFTPUploader(cfg.SFTP), nil
	case config.TargetLocal:
		return NewLocalUploader(cfg.Local.Path), nil
	default:
		return nil, fmt.Errorf("export target value not supported: %q", cfg.Target)
	}
}
