package attachment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"recordvault/pkg/platform/sentinel"
)

// Namespace is the bucket all attachment blobs live under.
const Namespace = "test-record-attachments"

// BlobStore persists attachment bytes on an afero filesystem: an OS directory
// in production, an in-memory fs in tests.
type BlobStore struct {
	fs afero.Fs
}

func NewBlobStore(fs afero.Fs) *BlobStore {
	return &BlobStore{fs: fs}
}

func (s *BlobStore) Put(p Path, r io.Reader) error {
	dir := filepath.Join(Namespace, p.OwnerID.String(), p.RecordID.String())
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	f, err := s.fs.Create(filepath.Join(dir, p.Filename))
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(filepath.Join(dir, p.Filename))
		return fmt.Errorf("write blob: %w", err)
	}
	return f.Close()
}

func (s *BlobStore) Get(p Path) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.location(p))
	if os.IsNotExist(err) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *BlobStore) Delete(p Path) error {
	err := s.fs.Remove(s.location(p))
	if os.IsNotExist(err) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func (s *BlobStore) location(p Path) string {
	return filepath.Join(Namespace, p.OwnerID.String(), p.RecordID.String(), p.Filename)
}
