package cookie

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileJar is an IMedium that keeps its cookies in a JSON file, so a repository
// persisted to it survives process restarts. It is used by the prepo CLI.
type FileJar struct {
	path string
	mu   sync.Mutex // serializes file writes
	jar  *Jar
}

// OpenFileJar loads the jar stored at path. A missing file yields an empty jar.
func OpenFileJar(path string) (*FileJar, error) {
	f := &FileJar{path: path, jar: NewJar()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debugf("cookie file %s does not exist yet", path)
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("cookie: read %s: %w", path, err)
	}

	var entries map[string]Entry
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("cookie: parse %s: %w", path, err)
		}
	}
	f.jar.restore(entries)
	return f, nil
}

// Path returns the location of the backing file.
func (f *FileJar) Path() string {
	return f.path
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cookie.IMedium)
// --------------------------------------------------------------------------

func (f *FileJar) Get(name string) (string, bool) {
	return f.jar.Get(name)
}

func (f *FileJar) Set(name, value string, attrs Attributes) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.jar.Set(name, value, attrs)
	return f.save()
}

func (f *FileJar) Delete(name string, attrs Attributes) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.jar.Delete(name, attrs)
	return f.save()
}

// save writes the jar through a temporary file and a rename
func (f *FileJar) save() error {
	data, err := json.MarshalIndent(f.jar.snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cookie: create %s: %w", dir, err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("cookie: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("cookie: rename %s: %w", tmp, err)
	}
	return nil
}
