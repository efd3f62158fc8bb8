package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a requested file is not in the directory.
var ErrNotFound = errors.New("file not found")

// ErrInvalidName is returned for names that are not a single plain path element.
var ErrInvalidName = errors.New("invalid file name")

// Dir is a flat directory of stored files. Writes are not atomic; a concurrent
// save of the same name leaves whichever copy finished last.
type Dir struct {
	root string
}

// NewDir creates root if needed and returns a Dir over it.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string {
	return d.root
}

// Path joins name onto the root after checking it cannot escape it.
func (d *Dir) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) ||
		filepath.Base(name) != name {
		return "", ErrInvalidName
	}
	return filepath.Join(d.root, name), nil
}

// Save writes r to name, replacing any existing file with that name.
func (d *Dir) Save(name string, r io.Reader) (err error) {
	path, err := d.Path(name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Resolve returns the path of an existing regular file called name.
func (d *Dir) Resolve(name string) (string, error) {
	path, err := d.Path(name)
	if err != nil {
		return "", ErrNotFound
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}
