// Package lock keeps two profsweep processes from working the same fleet at
// once. The lock is a PID file; a file left behind by a dead process is
// taken over.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when a live process holds the lock.
var ErrLocked = errors.New("another profsweep run holds the lock")

// Lock is a held PID file.
type Lock struct {
	path string
}

// Acquire writes the current PID to path. It fails with ErrLocked when the
// file names a running process other than this one.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("failed to write lock file: %w", werr)
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		pid, rerr := ReadPID(path)
		if rerr == nil && pid != os.Getpid() && IsRunning(pid) {
			return nil, fmt.Errorf("%w (pid %d, %s)", ErrLocked, pid, path)
		}
		// stale or unreadable
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}
	return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
}

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// ReadPID reads the PID stored in a lock file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid lock file %s: %w", path, err)
	}
	return pid, nil
}

// IsRunning reports whether a process with pid exists.
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 only checks existence.
	return process.Signal(syscall.Signal(0)) == nil
}
