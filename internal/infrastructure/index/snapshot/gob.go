package snapshot

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// saveGob writes object to path through a temp file and rename, so a reader
// never sees a half-written snapshot.
func saveGob(path string, object any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := gob.NewEncoder(tmp).Encode(object); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("gob encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename snapshot to %s: %w", path, err)
	}
	return nil
}

// loadGob decodes path into objectPointer. A missing file returns an error
// matching os.ErrNotExist.
func loadGob(path string, objectPointer any) error {
	file, err := os.Open(path) // #nosec G304 -- path comes from INDEX_DIR
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("snapshot %s: %w", path, os.ErrNotExist)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(objectPointer); err != nil {
		return fmt.Errorf("gob decode %s: %w", path, err)
	}
	return nil
}
