package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	domainerrors "github.com/Edward-Muir/when/internal/errors"
)

// ManifestFile sits next to the category files and is never treated as one.
const ManifestFile = "manifest.json"

// File is one category file on disk.
type File struct {
	Path     string
	Category Category // Derived from the file name; may be outside the known set
}

// Name returns the base file name.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// Store reads and writes category files in a single directory.
// It is not safe for concurrent writes to the same file.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the category files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for a category.
func (s *Store) Path(c Category) string {
	return filepath.Join(s.dir, c.FileName())
}

// EventFiles lists every *.json file in the directory except the manifest, sorted by name.
func (s *Store) EventFiles() ([]File, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, domainerrors.IO("open events dir", err)
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, domainerrors.IO("list event files", err)
	}

	sort.Strings(matches)
	files := make([]File, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		if name == ManifestFile {
			continue
		}
		files = append(files, File{
			Path:     m,
			Category: Category(strings.TrimSuffix(name, ".json")),
		})
	}
	return files, nil
}

// Load reads a category file.
func (s *Store) Load(path string) ([]*Event, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- dataset paths come from configuration
	if err != nil {
		return nil, domainerrors.IO("read "+filepath.Base(path), err)
	}
	events, err := Decode(data)
	if err != nil {
		return nil, domainerrors.IO("parse "+filepath.Base(path), err)
	}
	return events, nil
}

// Save rewrites a category file in full. The new content is written to a temporary file in
// the same directory and renamed over the original, so an interrupted write never leaves a
// truncated file behind.
func (s *Store) Save(path string, events []*Event) error {
	data, err := Encode(events)
	if err != nil {
		return domainerrors.IO("encode "+filepath.Base(path), err)
	}
	if err := writeAtomic(path, data); err != nil {
		return domainerrors.IO("write "+filepath.Base(path), err)
	}
	return nil
}

// Decode parses the content of a category file.
func Decode(data []byte) ([]*Event, error) {
	var events []*Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	for i, e := range events {
		if e == nil {
			return nil, fmt.Errorf("event %d is null", i)
		}
	}
	return events, nil
}

// DuplicateNames returns the names used by more than one event, in the order they first
// repeat.
// Empty names are ignored.
func DuplicateNames(events []*Event) []string {
	seen := make(map[string]int, len(events))
	var dups []string
	for _, e := range events {
		if e.Name == "" {
			continue
		}
		seen[e.Name]++
		if seen[e.Name] == 2 {
			dups = append(dups, e.Name)
		}
	}
	return dups
}

// Encode renders events the way the files are kept in the repository: two-space
// indentation, UTF-8 without HTML escaping, trailing newline.
func Encode(events []*Event) ([]byte, error) {
	if events == nil {
		events = []*Event{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) (err error) {
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
