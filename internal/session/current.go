package session

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// The ambient "current thread" pointer is a single persisted value per
// scope, mutated through the same lock discipline as agent state rather
// than held in a global.

const currentFile = "current.json"

type currentPointer struct {
	Thread string `json:"thread,omitempty"`
}

func (s *Store) currentPath() string { return filepath.Join(s.root, currentFile) }

// CurrentThread returns the scope's current thread id, or "" if unset.
func (s *Store) CurrentThread() (string, error) {
	data, err := os.ReadFile(s.currentPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var p currentPointer
	if err := json.Unmarshal(data, &p); err != nil {
		return "", err
	}
	return p.Thread, nil
}

// SetCurrentThread updates the pointer under the file's exclusive lock.
func (s *Store) SetCurrentThread(id string) error {
	lock, err := acquireLock(s.currentPath())
	if err != nil {
		return err
	}
	defer lock.release()

	data, err := json.Marshal(currentPointer{Thread: id})
	if err != nil {
		return err
	}
	return os.WriteFile(s.currentPath(), append(data, '\n'), 0o644)
}
