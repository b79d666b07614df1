// Package media stores the demonstration videos served under /media/avatars.
package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/constants"
)

// ErrInvalidFilename is returned for names that would escape the avatars directory.
var ErrInvalidFilename = errors.New("invalid media filename")

// Store keeps avatar videos as flat files in one directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path of a stored file.
func (s *Store) Path(filename string) (string, error) {
	if err := checkFilename(filename); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filename), nil
}

func checkFilename(filename string) error {
	if filename == "" || filename == "." || filename == ".." ||
		filepath.Base(filename) != filename || strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return nil
}

// VideoExt returns the extension to store an upload under: the upload's own
// extension when it is a known video type, .mp4 otherwise.
func VideoExt(uploadName string) string {
	ext := strings.ToLower(filepath.Ext(uploadName))
	if ai.IsVideoExt(ext) {
		return ext
	}
	return constants.AvatarExt
}

// Save writes data as <stem><ext>. When that file already exists a short
// random suffix is added instead of overwriting it. It returns the filename
// actually used.
func (s *Store) Save(stem, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}

	filename := stem + ext
	for range 5 {
		path, err := s.Path(filename)
		if err != nil {
			return "", err
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			filename = stem + "_" + uuid.NewString()[:8] + ext
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", filename, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("writing %s: %w", filename, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("closing %s: %w", filename, err)
		}
		return filename, nil
	}
	return "", fmt.Errorf("no free filename for %q", stem+ext)
}

// Read returns the content of a stored file.
func (s *Store) Read(filename string) ([]byte, error) {
	path, err := s.Path(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return data, nil
}

// Exists reports whether filename is a regular file in the store.
func (s *Store) Exists(filename string) bool {
	path, err := s.Path(filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (s *Store) Delete(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", filename, err)
	}
	return nil
}

// FindByStem looks for a video whose name without extension equals stem.
// An .mp4 file wins over other video types. A missing directory finds nothing.
func (s *Store) FindByStem(stem string) (string, bool) {
	if stem == "" {
		return "", false
	}
	if s.Exists(stem + constants.AvatarExt) {
		return stem + constants.AvatarExt, true
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if strings.TrimSuffix(e.Name(), ext) == stem && ai.IsVideoExt(strings.ToLower(ext)) {
			return e.Name(), true
		}
	}
	return "", false
}

// List returns the files with extension ext (case-insensitive), sorted by name.
func (s *Store) List(ext string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading media directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
