package storagesvc

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

// MediaURLPrefix is the URL path under which LocalStorage files are served.
const MediaURLPrefix = "/media"

// LocalStorage stores files on the local filesystem, under dir.
type LocalStorage struct {
	dir string
}

var _ core.FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage dir")
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", errors.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

func (s *LocalStorage) Save(_ context.Context, key string, r io.Reader) (string, error) {
	fp, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating dir")
	}
	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return s.URL(key), nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	fp, err := s.path(key)
	if err != nil {
		return err
	}
	return errors.Wrap(os.Remove(fp), "removing file")
}

func (s *LocalStorage) URL(key string) string {
	u := url.URL{Path: path.Join(MediaURLPrefix, key)}
	return u.String()
}
