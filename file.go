package rewind

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSerializer persists histories as JSON documents on disk, one file
// per identifier under a root directory
type FileSerializer struct {
	root string
}

// NewFileSerializer creates a serializer rooted at the given directory,
// creating it if needed. An empty root defaults to a "rewind" directory
// under the user's configuration directory
func NewFileSerializer(root string) (*FileSerializer, error) {
	if root == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		root = filepath.Join(base, "rewind")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FileSerializer{root: root}, nil
}

// Root returns the directory histories are written under
func (f *FileSerializer) Root() string {
	return f.root
}

func (f *FileSerializer) Save(_ context.Context, id StackID, h History) error {
	data, err := encodeHistory(h)
	if err != nil {
		return err
	}
	return os.WriteFile(f.buildPath(id), data, 0o644)
}

func (f *FileSerializer) Load(
	_ context.Context, id StackID,
) (History, error) {
	data, err := os.ReadFile(f.buildPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrHistoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeHistory(data)
}

// Delete removes the persisted history for an identifier
func (f *FileSerializer) Delete(_ context.Context, id StackID) error {
	err := os.Remove(f.buildPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileSerializer) buildPath(id StackID) string {
	return filepath.Join(f.root, id.Join("_")+".json")
}
