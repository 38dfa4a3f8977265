package daemon

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the instance lock.
var ErrLocked = errors.New("another curator process holds the instance lock")

// AcquireLock takes the single-instance lock at path without blocking. The
// returned function releases it.
func AcquireLock(path string) (func() error, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock.Unlock, nil
}

// Locked reports whether another process currently holds the lock at path.
func Locked(path string) bool {
	release, err := AcquireLock(path)
	if err != nil {
		return errors.Is(err, ErrLocked)
	}
	_ = release()
	return false
}
