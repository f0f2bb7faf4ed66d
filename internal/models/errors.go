package models

import "errors"

// Repository sentinels shared with the service layer.
var (
	// ErrDuplicate reports a write rejected by a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleStatus reports a guarded status change that found the row in another state.
	ErrStaleStatus = errors.New("record status changed")
	// ErrCourseFull reports that activating an enrollment would exceed course capacity.
	ErrCourseFull = errors.New("course is full")
)
