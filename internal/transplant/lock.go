package transplant

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	runLockFileNameConstant        = "transplant.lock"
	runLockPermissionsConstant     = 0o644
	runLockCreateTemplateConstant  = "create lock %s: %w"
	runLockReleaseTemplateConstant = "release lock %s: %w"
)

type gitDirectoryProvider interface {
	GitDirectory() (string, error)
}

// runLock marks a target repository as being written by one transplant run.
type runLock struct {
	path string
}

// acquireRunLock creates the lock file exclusively inside gitDirectory.
func acquireRunLock(gitDirectory string) (*runLock, error) {
	lockPath := filepath.Join(gitDirectory, runLockFileNameConstant)
	lockFile, createError := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, runLockPermissionsConstant)
	if createError != nil {
		if errors.Is(createError, os.ErrExist) {
			return nil, RunInProgressError{LockPath: lockPath}
		}
		return nil, fmt.Errorf(runLockCreateTemplateConstant, lockPath, createError)
	}

	_, writeError := lockFile.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	closeError := lockFile.Close()
	if joinedError := errors.Join(writeError, closeError); joinedError != nil {
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf(runLockCreateTemplateConstant, lockPath, joinedError)
	}
	return &runLock{path: lockPath}, nil
}

// Release removes the lock file. Releasing a nil lock is a no-op.
func (lock *runLock) Release() error {
	if lock == nil {
		return nil
	}
	if removeError := os.Remove(lock.path); removeError != nil && !errors.Is(removeError, os.ErrNotExist) {
		return fmt.Errorf(runLockReleaseTemplateConstant, lock.path, removeError)
	}
	return nil
}
