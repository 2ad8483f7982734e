package state

import "errors"

var (
	// ErrStorageWrite wraps any rejected write. The state passed to the write
	// is not committed.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrLockTimeout means the advisory lock could not be taken within the
	// retry budget. The mutation did not run.
	ErrLockTimeout = errors.New("could not acquire state lock")

	ErrCorruptDocument    = errors.New("corrupt state document")
	ErrUnsupportedVersion = errors.New("unsupported state version")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownSubcategory = errors.New("unknown subcategory")
)
