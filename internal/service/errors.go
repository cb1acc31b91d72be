package service

import (
	"errors"
)

// Error taxonomy shared by the entry operations. Details are attached with
// fmt.Errorf("%w: ...") so callers classify with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidParent     = errors.New("parent folder not found")
	ErrNotFound          = errors.New("entry not found")
	ErrDependencyFailure = errors.New("dependency failure")
)
