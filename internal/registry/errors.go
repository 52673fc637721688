package registry

import "errors"

var (
	ErrValidation = errors.New("registry: validation failed")
	ErrNotFound   = errors.New("registry: agent not found")
	ErrNoneAvailable = errors.New("registry: no available agent")
)
