package tasks

import "errors"

var (
	// ErrTaskNotFound is returned when a mutation targets an id that is not in the collection.
	ErrTaskNotFound = errors.New("task not found")

	ErrEmptyTitle      = errors.New("task title must not be empty")
	ErrEmptyComment    = errors.New("comment text must not be empty")
	ErrDuplicateID     = errors.New("task id already exists")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrInvalidSchedule means exactly one of StartTime and Duration was set.
	ErrInvalidSchedule = errors.New("start time and duration must be set together")
)
