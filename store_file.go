package sqlreplay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/prashanthpai/sqlreplay/fixture"
	"github.com/spf13/afero"
)

// FileStore implements fixture.Store with one file per fixture, at
// <root>/<name>.<ext>.
type FileStore struct {
	fs    afero.Fs
	root  string
	codec fixture.Codec
}

var _ fixture.Store = &FileStore{} // FileStore is-a fixture.Store.

// NewFileStore returns a FileStore rooted at root of fs. A nil codec
// defaults to fixture.YAML.
func NewFileStore(fs afero.Fs, root string, codec fixture.Codec) *FileStore {
	if codec == nil {
		codec = fixture.YAML
	}
	return &FileStore{
		fs:    fs,
		root:  root,
		codec: codec,
	}
}

// Codec returns the codec fixtures are stored with.
func (s *FileStore) Codec() fixture.Codec { return s.codec }

// Path returns the file path of the fixture name.
func (s *FileStore) Path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("fixture name can't be empty")
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("fixture name %q must be relative", name)
	}

	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("fixture name %q escapes the fixture root", name)
	}
	return filepath.Join(s.root, clean+"."+s.codec.Ext()), nil
}

// Load reads and decodes the fixture name.
func (s *FileStore) Load(_ context.Context, name string) (*fixture.Fixture, bool, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, false, err
	}

	b, err := afero.ReadFile(s.fs, path)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.WithMessagef(err, "reading fixture %s", path)
	}

	f, err := s.codec.Unmarshal(b)
	if err != nil {
		return nil, true, errors.WithMessagef(err, "decoding fixture %s", path)
	}
	return f, true, nil
}

// Save encodes f and writes it to its path, creating missing parent
// directories. The fixture is written to a temporary file which is then
// renamed over the previous version.
func (s *FileStore) Save(_ context.Context, f *fixture.Fixture) error {
	path, err := s.Path(f.Name)
	if err != nil {
		return err
	}

	b, err := s.codec.Marshal(f)
	if err != nil {
		return errors.WithMessagef(err, "encoding fixture %q", f.Name)
	}

	var next = path + ".next"
	if err = s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithMessage(err, "creating fixture directory")
	} else if err = afero.WriteFile(s.fs, next, b, 0644); err != nil {
		return errors.WithMessage(err, "writing fixture")
	} else if err = s.fs.Rename(next, path); err != nil {
		return errors.WithMessage(err, "renaming next => current")
	}
	return nil
}

// List returns the names of all stored fixtures, sorted.
func (s *FileStore) List() ([]string, error) {
	var names []string
	var suffix = "." + s.codec.Ext()

	err := afero.Walk(s.fs, s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, suffix) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(strings.TrimSuffix(rel, suffix)))
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.WithMessagef(err, "listing fixtures in %s", s.root)
	}

	sort.Strings(names)
	return names, nil
}
