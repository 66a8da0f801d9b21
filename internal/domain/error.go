package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidEntity      = errors.New("invalid entity")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Queue
	ErrStaleJob       = errors.New("job was superseded by a newer enqueue")
	ErrUnknownJobType = errors.New("unknown job type")
	ErrPayloadType    = errors.New("payload does not match job type")
	ErrNoMedia        = errors.New("No processable media found")

	// Translation
	ErrReconstructionIncomplete = errors.New("Reconstruction not complete yet")
	ErrTranslationInProgress    = errors.New("Translation already in progress")
	ErrRateLimited              = errors.New("rate limit exceeded")

	// Locks
	ErrLockNotAcquired = errors.New("lock not acquired")
)
