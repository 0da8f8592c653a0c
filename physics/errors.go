package physics

import "errors"

// ErrBodyNotFound is returned when a body handle no longer resolves
var ErrBodyNotFound = errors.New("rigid body not found")
