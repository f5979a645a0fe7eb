// Package lock provides the single-instance session lock. Long-running
// modes (repl, serve) take it so two assistants never share one task
// ledger.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// SessionLock is a PID file guarded by flock(2). The lock lives as long as
// the file descriptor stays open; a crashed process releases it implicitly.
type SessionLock struct {
	path string
	f    *os.File
}

// Acquire takes an exclusive non-blocking lock at path and records the
// current PID and session ID in it. A second caller gets an error naming
// the holder when readable.
func Acquire(path, sessionID string) (*SessionLock, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder := describeHolder(f)
		_ = f.Close()
		if holder != "" {
			return nil, fmt.Errorf("another session is running (%s)", holder)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	if err := rewrite(f, fmt.Sprintf("%d %s\n", os.Getpid(), sessionID)); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}

	return &SessionLock{path: path, f: f}, nil
}

func rewrite(f *os.File, content string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		return err
	}
	return f.Sync()
}

// describeHolder reads the current owner record, best effort.
func describeHolder(f *os.File) string {
	b := make([]byte, 128)
	n, err := f.ReadAt(b, 0)
	if n == 0 && err != nil {
		return ""
	}
	fields := strings.Fields(string(b[:n]))
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return "pid " + fields[0]
	default:
		return fmt.Sprintf("pid %s, session %s", fields[0], fields[1])
	}
}

// Path returns the lock file location.
func (l *SessionLock) Path() string { return l.path }

// Release unlocks and closes the lock file. Safe to call more than once.
func (l *SessionLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
