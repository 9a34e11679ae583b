package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceNotSet is returned when a template has no resource name.
	ErrResourceNotSet = errors.New("engine: template resource not set")
	// ErrRenderFailed is matched by every RenderError.
	ErrRenderFailed = errors.New("engine: render failed")
)

// RenderError is the only error kind returned for engine render failures. The
// engine-specific cause is reachable through Unwrap.
type RenderError struct {
	Resource string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("engine: could not render %s: %v", e.Resource, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRenderFailed) match.
func (e *RenderError) Is(target error) bool {
	return target == ErrRenderFailed
}
