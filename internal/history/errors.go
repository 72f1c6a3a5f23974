package history

import "errors"

// Storage failure taxonomy. Callers match with errors.Is.
var (
	ErrStorageRead   = errors.New("history: storage read failed")
	ErrStorageWrite  = errors.New("history: storage write failed")
	ErrSerialization = errors.New("history: malformed persisted history")
)
