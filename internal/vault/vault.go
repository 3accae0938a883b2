package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrExists is returned when a create or rename target already exists.
	ErrExists = errors.New("file already exists")
	// ErrNotFound is returned for paths that do not exist in the vault.
	ErrNotFound = errors.New("file not found")
	// ErrOutsideVault is returned for paths that escape the vault root.
	ErrOutsideVault = errors.New("path is outside the vault")
)

// File is a note in the vault, addressed by its slash-separated path
// relative to the vault root.
type File struct {
	Path string
}

// Name returns the file name with extension.
func (f File) Name() string { return path.Base(f.Path) }

// Basename returns the file name without extension.
func (f File) Basename() string {
	return strings.TrimSuffix(f.Name(), path.Ext(f.Path))
}

// Extension returns the extension without the leading dot.
func (f File) Extension() string {
	return strings.TrimPrefix(path.Ext(f.Path), ".")
}

// Parent returns the folder containing the file, "" for the root.
func (f File) Parent() string {
	dir := path.Dir(f.Path)
	if dir == "." {
		return ""
	}
	return dir
}

// Vault is a directory of markdown notes.
type Vault struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open returns a vault rooted at dir. The directory must exist.
func Open(dir string) (*Vault, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open vault: %s is not a directory", abs)
	}
	return &Vault{root: abs, locks: make(map[string]*sync.Mutex)}, nil
}

// Root returns the absolute vault directory.
func (v *Vault) Root() string { return v.root }

// Abs returns the absolute filesystem path for a vault path.
func (v *Vault) Abs(p string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(p))
	if clean == "/" {
		return v.root, nil
	}
	abs := filepath.Join(v.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(v.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, p)
	}
	return abs, nil
}

func normalize(p string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
}

// lockFor serializes writes to a single path.
func (v *Vault) lockFor(p string) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()
	l, ok := v.locks[p]
	if !ok {
		l = &sync.Mutex{}
		v.locks[p] = l
	}
	return l
}

// List returns all markdown notes, skipping dot directories, sorted by path.
func (v *Vault) List() ([]File, error) {
	var files []File
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), ".md") {
			return nil
		}
		rel, err := filepath.Rel(v.root, p)
		if err != nil {
			return err
		}
		files = append(files, File{Path: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// File returns the note at p if it exists.
func (v *Vault) File(p string) (File, error) {
	abs, err := v.Abs(p)
	if err != nil {
		return File{}, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return File{}, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a folder", p)
	}
	return File{Path: normalize(p)}, nil
}

// Exists reports whether p exists in the vault.
func (v *Vault) Exists(p string) bool {
	abs, err := v.Abs(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Read returns the content of f.
func (v *Vault) Read(f File) (string, error) {
	abs, err := v.Abs(f.Path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, f.Path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Modify replaces the content of f.
func (v *Vault) Modify(f File, content string) error {
	abs, err := v.Abs(f.Path)
	if err != nil {
		return err
	}
	l := v.lockFor(normalize(f.Path))
	l.Lock()
	defer l.Unlock()

	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, f.Path)
	}
	return writeAtomic(abs, []byte(content))
}

// Create writes a new note at p. Missing parent folders are created.
func (v *Vault) Create(p, content string) (File, error) {
	abs, err := v.Abs(p)
	if err != nil {
		return File{}, err
	}
	norm := normalize(p)
	l := v.lockFor(norm)
	l.Lock()
	defer l.Unlock()

	if _, err := os.Stat(abs); err == nil {
		return File{}, fmt.Errorf("%w: %s", ErrExists, p)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return File{}, err
	}
	if err := writeAtomic(abs, []byte(content)); err != nil {
		return File{}, err
	}
	return File{Path: norm}, nil
}

// Rename moves f to newPath and returns the renamed file.
func (v *Vault) Rename(f File, newPath string) (File, error) {
	from, err := v.Abs(f.Path)
	if err != nil {
		return File{}, err
	}
	to, err := v.Abs(newPath)
	if err != nil {
		return File{}, err
	}
	norm := normalize(newPath)
	if norm == normalize(f.Path) {
		return f, nil
	}

	l := v.lockFor(normalize(f.Path))
	l.Lock()
	defer l.Unlock()

	if _, err := os.Stat(from); errors.Is(err, fs.ErrNotExist) {
		return File{}, fmt.Errorf("%w: %s", ErrNotFound, f.Path)
	}
	if _, err := os.Stat(to); err == nil {
		return File{}, fmt.Errorf("%w: %s", ErrExists, newPath)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return File{}, err
	}
	if err := os.Rename(from, to); err != nil {
		return File{}, err
	}
	return File{Path: norm}, nil
}

// EnsureFolder creates folder p and its parents.
func (v *Vault) EnsureFolder(p string) error {
	abs, err := v.Abs(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(abs, 0755)
}

func writeAtomic(abs string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".bmo-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, abs)
}
