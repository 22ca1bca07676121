// Package storage keeps uploaded images and generated tickets on the local
// filesystem under a single root that the HTTP server exposes at /uploads.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path the upload root is served under.
const PublicPrefix = "/uploads"

var (
	ErrNotImage  = errors.New("only image uploads are allowed")
	ErrEmptyFile = errors.New("file is empty")
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Store writes files below Root.
type Store struct {
	Root string
}

// New stores files below root, "uploads" when empty.
func New(root string) *Store {
	if root == "" {
		root = "uploads"
	}
	return &Store{Root: root}
}

// SanitizeName keeps the base name and replaces every character outside
// [a-zA-Z0-9._-] with '_'.
func SanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "file"
	}
	return unsafeChars.ReplaceAllString(base, "_")
}

// Path is the filesystem location of name inside subdir.
func (s *Store) Path(subdir, name string) string {
	return filepath.Join(s.Root, filepath.Clean("/" + subdir)[1:], name)
}

// URL is the public path of name inside subdir.
func (s *Store) URL(subdir, name string) string {
	return path.Join(PublicPrefix, subdir, name)
}

// Dir creates subdir if needed and returns its filesystem path.
func (s *Store) Dir(subdir string) (string, error) {
	dir := s.Path(subdir, "")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// Save copies an uploaded image to subdir as <uuid>-<sanitized name> and
// returns its public URL.
func (s *Store) Save(subdir string, fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Size == 0 {
		return "", ErrEmptyFile
	}
	if ct := fh.Header.Get("Content-Type"); !strings.HasPrefix(strings.ToLower(ct), "image/") {
		return "", ErrNotImage
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	return s.Write(subdir, fh.Filename, src)
}

// Write stores r under a fresh unique name derived from original.
func (s *Store) Write(subdir, original string, r io.Reader) (string, error) {
	if _, err := s.Dir(subdir); err != nil {
		return "", err
	}
	name := uuid.NewString() + "-" + SanitizeName(original)
	dst, err := os.Create(s.Path(subdir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return s.URL(subdir, name), nil
}
