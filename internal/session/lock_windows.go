//go:build windows

package session

import (
	"os"
	"path/filepath"
)

type fileLock struct {
	f *os.File
}

// Windows has no flock; O_CREATE|O_EXCL on the sidecar approximates an
// exclusive lock well enough for a single workstation.
func acquireLock(path string) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	for {
		f, err := os.OpenFile(path+".lock.win", os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
		if err == nil {
			return &fileLock{f: f}, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
	}
}

func (l *fileLock) release() {
	if l == nil || l.f == nil {
		return
	}
	name := l.f.Name()
	_ = l.f.Close()
	_ = os.Remove(name)
}
