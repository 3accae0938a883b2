package plugin

import (
	"os"
	"path/filepath"
)

// DataStore is the key-value persistence a plugin gets from the host.
type DataStore interface {
	LoadData() ([]byte, error)
	SaveData(data []byte) error
}

// FileData stores plugin data as a single JSON file.
type FileData struct {
	Path string
}

// DataFile returns the data file location for a plugin under root.
func DataFile(root, pluginID string) string {
	return filepath.Join(root, pluginID, "data.json")
}

// LoadData returns the stored bytes. A missing file yields an error
// matching fs.ErrNotExist.
func (f FileData) LoadData() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// SaveData replaces the stored bytes.
func (f FileData) SaveData(data []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "data-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}
