package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store saves an uploaded attachment and returns the reference under which it
// can be fetched later.
type Store interface {
	Save(filename string, r io.Reader) (string, error)
}

// Disk stores attachments on the local filesystem. Files are served
// statically under urlPrefix.
type Disk struct {
	dir       string
	urlPrefix string
}

// NewDisk creates the upload directory if needed.
func NewDisk(dir, urlPrefix string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir, urlPrefix: urlPrefix}, nil
}

// Save writes the attachment under a generated name, keeping the original
// extension.
func (d *Disk) Save(filename string, r io.Reader) (string, error) {
	name := uuid.NewString() + filepath.Ext(filename)
	f, err := os.Create(filepath.Join(d.dir, name))
	if err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return d.urlPrefix + "/" + name, nil
}
