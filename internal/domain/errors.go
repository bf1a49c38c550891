package domain

import "errors"

// Persistence contract errors. Repositories return these (possibly wrapped);
// services translate them into caller-facing errors.
var (
	// ErrNotFound: the identifier does not resolve to a stored record.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a conditional update's precondition no longer held, i.e.
	// a concurrent writer changed the record between read and write.
	ErrConflict = errors.New("conflict")
	// ErrDuplicate: a uniqueness constraint was violated on insert.
	ErrDuplicate = errors.New("duplicate")
)
