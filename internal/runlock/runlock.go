// Package runlock keeps two aggregation runs off the same database file.
package runlock

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another run holds the database lock")

// Lock is an exclusive advisory lock on "<dbPath>.lock".
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock for dbPath without blocking.
func Acquire(dbPath string) (*Lock, error) {
	fl := flock.New(dbPath + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
