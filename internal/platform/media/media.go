// Package media stores uploaded files on the local filesystem below a media
// root. Paths handed out are relative to the root and use forward slashes.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidPath is returned for paths that escape the media root.
var ErrInvalidPath = errors.New("invalid media path")

// Store saves and serves files below Root.
type Store struct {
	root string
}

// New creates a Store rooted at root.
func New(root string) *Store {
	return &Store{root: root}
}

// Save writes r to dir under a unique name derived from filename and
// returns the relative path and the number of bytes written.
func (s *Store) Save(dir, filename string, r io.Reader) (string, int64, error) {
	base := sanitize(filename)
	rel := path.Join(dir, uuid.NewString()[:8]+"_"+base)

	full, err := s.full(rel)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create media directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create media file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return "", 0, fmt.Errorf("failed to write media file: %w", err)
	}
	return rel, n, nil
}

// Open opens the file at the relative path rel.
func (s *Store) Open(rel string) (*os.File, error) {
	full, err := s.full(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes the file at rel. A missing file is not an error.
func (s *Store) Remove(rel string) error {
	full, err := s.full(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) full(rel string) (string, error) {
	clean := path.Clean(rel)
	if rel == "" || clean == "." || path.IsAbs(clean) ||
		slices.Contains(strings.Split(clean, "/"), "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// sanitize keeps the base name of an uploaded file with unsafe characters
// replaced.
func sanitize(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "upload"
	}
	return base
}
