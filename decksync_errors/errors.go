// Provides common decksync error definitions.
package decksync_errors

import "errors"

var (
	ErrValidation      = errors.New("decksync: malformed or ill-targeted action")
	ErrTombstoned      = errors.New("decksync: entity is tombstoned")
	ErrHistoryExpired  = errors.New("decksync: revision evicted from history")
	ErrVersionMismatch = errors.New("decksync: base revision mismatch")
	ErrIntegrity       = errors.New("decksync: checksum mismatch")

	ErrSequentialConflict = errors.New("decksync: concurrent phase or stack actions")
	ErrAlreadyInitialized = errors.New("decksync: session already initialized")
	ErrNotInitialized     = errors.New("decksync: session not initialized")
	ErrNotContiguous      = errors.New("decksync: delta chain is not contiguous")
	ErrClosed             = errors.New("decksync: session closed")
)
