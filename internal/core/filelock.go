package core

import (
	"fmt"
	"os"
	"syscall"
)

// AcquireRunLock takes an exclusive non-blocking lock on the given file so
// only one inbox daemon processes the channel at a time. It returns an
// unlock function that must be called to release the lock.
func AcquireRunLock(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("another instance is already running: %w", err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
