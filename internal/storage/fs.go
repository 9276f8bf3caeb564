package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/mynotes/internal/apperr"
	"github.com/starford/mynotes/internal/checksum"
)

// tmpPrefix marks in-flight uploads; the watcher ignores these files.
const tmpPrefix = ".mynotes-tmp-"

// FS implements Provider backed by the local file system.
type FS struct {
	root      string // absolute path to the object directory
	urlPrefix string // prepended to escaped keys by URL
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist. urlPrefix is the public path the
// objects are served from, e.g. "/objects/".
func NewFS(root, urlPrefix string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &FS{root: abs, urlPrefix: urlPrefix}, nil
}

// Root returns the absolute object directory.
func (f *FS) Root() string {
	return f.root
}

// Path resolves a key against the root and rejects any result that
// escapes it (directory traversal) or names the root itself.
func (f *FS) Path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage: empty key: %w", apperr.ErrInvalid)
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute keys not allowed: %s: %w", key, apperr.ErrInvalid)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve key: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: key escapes object root: %s: %w", key, apperr.ErrInvalid)
	}
	return abs, nil
}

// Put atomically writes the object: tmp file → fsync → rename.
// An existing object under the same key is replaced.
func (f *FS) Put(_ context.Context, key string, r io.Reader) (*ObjectInfo, error) {
	abs, err := f.Path(key)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	sum := checksum.NewWriter()
	n, err := io.Copy(io.MultiWriter(tmp, sum), r)
	if err != nil {
		return nil, fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return nil, fmt.Errorf("storage: rename: %w", err)
	}
	success = true

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return &ObjectInfo{
		Key:       key,
		Size:      n,
		Checksum:  sum.Sum(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// URL returns the public URL for key. The object is not required to
// exist; a missing object surfaces as a 404 when the URL is requested.
func (f *FS) URL(_ context.Context, key string) (string, error) {
	if _, err := f.Path(key); err != nil {
		return "", err
	}
	return f.urlPrefix + escapeKey(key), nil
}

// Remove deletes an object. Missing objects are ignored.
func (f *FS) Remove(_ context.Context, key string) error {
	abs, err := f.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

// Stat returns object metadata including its content checksum.
func (f *FS) Stat(_ context.Context, key string) (*ObjectInfo, error) {
	abs, err := f.Path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: %s: %w", key, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: open %s: %w", key, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("storage: %s: %w", key, apperr.ErrNotFound)
	}
	sum, err := checksum.SumReader(file)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return &ObjectInfo{
		Key:       key,
		Size:      info.Size(),
		Checksum:  sum,
		UpdatedAt: info.ModTime(),
	}, nil
}

// escapeKey escapes each path segment so keys with slashes stay routable.
func escapeKey(key string) string {
	parts := strings.Split(filepath.ToSlash(key), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ Provider = (*FS)(nil)
