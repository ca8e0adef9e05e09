package segments

import "errors"

// Sentinel errors for the segment service layer.
var (
	ErrNotFound      = errors.New("segment not found")
	ErrSystemSegment = errors.New("system segments cannot be modified or deleted")
	ErrInvalidRules  = errors.New("invalid filter rules")
	ErrNameRequired  = errors.New("segment name is required")
)
