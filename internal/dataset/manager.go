package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"netsentry/internal/model"
)

// Manager owns the on-disk dataset directory: uploads land in it under
// collision-free names, generation writes into it, and training resolves
// dataset references through it.
type Manager struct {
	dir string
}

// NewManager ensures dir exists and returns a manager rooted there.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the managed directory.
func (m *Manager) Dir() string { return m.dir }

// SaveUpload stores an uploaded CSV under a uuid-prefixed name and returns
// the stored file name.
func (m *Manager) SaveUpload(filename string, r io.Reader) (string, error) {
	base := filepath.Base(filename)
	if !strings.HasSuffix(strings.ToLower(base), ".csv") {
		return "", model.NewDataError("upload %s is not a CSV file", base)
	}
	name := uuid.New().String()[:8] + "_" + base

	f, err := os.Create(filepath.Join(m.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return name, nil
}

// GenerateTo builds a dataset of the given kind and writes it into the
// managed directory, returning the stored file name.
func (m *Manager) GenerateTo(kind string, rows int, seed int64) (string, error) {
	tbl, err := Generate(kind, rows, seed)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("generated_%s_%s.csv", kind, uuid.New().String()[:8])
	if err := WriteCSV(tbl, filepath.Join(m.dir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// Resolve maps a dataset reference to a path inside the managed directory.
// References escaping the directory are rejected.
func (m *Manager) Resolve(name string) (string, error) {
	if name == "" {
		return "", model.NewDataError("dataset name is empty")
	}
	if filepath.Base(name) != name {
		return "", model.NewDataError("dataset name %s must not contain path separators", name)
	}
	path := filepath.Join(m.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("dataset %s: %w", name, err)
	}
	return path, nil
}

// Load resolves and parses a stored dataset.
func (m *Manager) Load(name string) (*model.Table, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	return LoadCSV(path)
}

// List names every CSV in the managed directory, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
