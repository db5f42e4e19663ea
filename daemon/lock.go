package daemon

import (
	"errors"
	"fmt"
	"os"
)

// ErrLockHeld is returned when another live process holds the lock.
var ErrLockHeld = errors.New("processing lock held by another process")

// Lock is an advisory single-instance lock backed by an exclusive PID
// file. A lock left behind by a dead process is taken over silently.
// Correctness does not depend on the lock; it only prevents wasted
// duplicate work.
type Lock struct {
	path string
}

// AcquireLock takes the advisory lock at path for this process.
// Returns ErrLockHeld if another live process holds it.
func AcquireLock(path string) (*Lock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d", os.Getpid())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("write lock file %s: %w", path, errors.Join(werr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock file %s: %w", path, err)
		}

		pid, rerr := ReadPIDFile(path)
		if rerr == nil && pid != os.Getpid() && IsProcessAlive(pid) {
			return nil, ErrLockHeld
		}

		// Stale lock: remove it and retry once
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock %s: %w", path, err)
		}
	}
	return nil, ErrLockHeld
}

// Release removes the lock file.
func (l *Lock) Release() error {
	return RemovePIDFile(l.path)
}
