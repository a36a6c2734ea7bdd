package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	snapshotPrefix = "cms_snapshot_"
	snapshotSuffix = ".json"
	latestSnapshot = "cms_snapshot_latest.json"
)

// FileSystem stores stub backend snapshots on an afero filesystem
type FileSystem struct {
	fs      afero.Fs
	baseDir string
}

// NewFileSystem creates a new FileSystem instance rooted at baseDir.
// If baseDir is empty, it uses TAGSYNC_DATA_DIR environment variable or defaults to "data"
func NewFileSystem(baseDir string) *FileSystem {
	if baseDir == "" {
		baseDir = os.Getenv("TAGSYNC_DATA_DIR")
		if baseDir == "" {
			baseDir = "data"
		}
	}

	fs := afero.NewOsFs()

	// Ensure base directory exists
	if err := fs.MkdirAll(baseDir, 0755); err != nil {
		// If we can't create the directory, fall back to memory fs for safety
		fs = afero.NewMemMapFs()
	}

	return &FileSystem{
		fs:      fs,
		baseDir: baseDir,
	}
}

// NewMemoryFileSystem creates a FileSystem backed by memory (useful for testing)
func NewMemoryFileSystem() *FileSystem {
	return &FileSystem{
		fs:      afero.NewMemMapFs(),
		baseDir: "data",
	}
}

// GetDataDir returns the base data directory path
func (f *FileSystem) GetDataDir() string {
	return f.baseDir
}

// WriteFile writes data to a file, creating parent directories
func (f *FileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := f.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return afero.WriteFile(f.fs, path, data, perm)
}

// ReadFile reads data from a file
func (f *FileSystem) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(f.fs, path)
}

// Exists checks if a file or directory exists
func (f *FileSystem) Exists(path string) (bool, error) {
	return afero.Exists(f.fs, path)
}

// SaveSnapshot writes a timestamped snapshot and replaces the latest one.
// It returns the timestamped file name.
func (f *FileSystem) SaveSnapshot(data []byte, now time.Time) (string, error) {
	name := snapshotPrefix + now.UTC().Format("20060102_150405") + snapshotSuffix
	if err := f.WriteFile(filepath.Join(f.baseDir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	// latest is replaced by rename, never written in place
	tmp := filepath.Join(f.baseDir, latestSnapshot+".tmp")
	if err := f.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := f.fs.Rename(tmp, filepath.Join(f.baseDir, latestSnapshot)); err != nil {
		return "", fmt.Errorf("failed to replace latest snapshot: %w", err)
	}
	return name, nil
}

// LoadLatestSnapshot reads the latest snapshot. ok is false when none exists.
func (f *FileSystem) LoadLatestSnapshot() (data []byte, ok bool, err error) {
	path := filepath.Join(f.baseDir, latestSnapshot)
	exists, err := f.Exists(path)
	if err != nil || !exists {
		return nil, false, err
	}
	data, err = f.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, true, nil
}

// ListSnapshots returns timestamped snapshot names, oldest first.
func (f *FileSystem) ListSnapshots() ([]string, error) {
	infos, err := afero.ReadDir(f.fs, f.baseDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || name == latestSnapshot {
			continue
		}
		if strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, snapshotSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// PruneSnapshots removes all but the newest keep timestamped snapshots.
func (f *FileSystem) PruneSnapshots(keep int) error {
	names, err := f.ListSnapshots()
	if err != nil {
		return err
	}
	if len(names) <= keep {
		return nil
	}
	for _, name := range names[:len(names)-keep] {
		if err := f.fs.Remove(filepath.Join(f.baseDir, name)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}
