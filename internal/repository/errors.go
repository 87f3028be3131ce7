package repository

import "errors"

var (
	// ErrDuplicate is returned when an insert collides with a unique key
	ErrDuplicate = errors.New("record already exists")
	// ErrStaleState is returned when a conditional update matched no row
	ErrStaleState = errors.New("record changed state")
	// ErrNotFound is returned when an update targets a missing row
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyLinked is returned when a recording already completes an assignment
	ErrAlreadyLinked = errors.New("recording already linked to an assignment")
)
