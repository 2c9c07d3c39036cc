package templates

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/joestump/hookline/internal/apperr"
)

// FileStore keeps the template Set in a YAML document with "hook" and "fit" keys.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by path. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// Load reads the document. A missing or malformed file is a Persistence error.
func (f *FileStore) Load(_ context.Context) (Set, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return Set{}, apperr.Persistence("load templates", "read "+f.path, err)
	}
	var s Set
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Set{}, apperr.Persistence("load templates", "decode "+f.path, err)
	}
	return s, nil
}

// Save writes the document atomically.
func (f *FileStore) Save(_ context.Context, s Set) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return apperr.Persistence("save templates", "encode", err)
	}
	if err := writeFileAtomic(f.path, b, 0o644); err != nil {
		return apperr.Persistence("save templates", "write "+f.path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".templates-*.yaml")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
