package assets

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalSource reads assets below a root directory.
type LocalSource struct {
	root string
}

// NewLocalSource constructs a source rooted at dir.
func NewLocalSource(dir string) (*LocalSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalSource{root: abs}, nil
}

// Open returns the asset stored at key.
func (s *LocalSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, &Error{Op: "Open", Key: key, Err: err}
	}
	path := filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return nil, &Error{Op: "Open", Key: key, Err: ErrInvalidKey}
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Op: "Open", Key: key, Err: ErrNotFound}
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, &Error{Op: "Open", Key: key, Err: ErrAccessDenied}
		}
		return nil, &Error{Op: "Open", Key: key, Err: err}
	}
	return f, nil
}
