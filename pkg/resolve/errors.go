package resolve

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceNotFound is matched by every NotFoundError.
	ErrResourceNotFound = errors.New("resolve: resource not found")
	// ErrConfiguration signals an invalid handler configuration, such as an
	// empty base path.
	ErrConfiguration = errors.New("resolve: invalid configuration")
)

// NotFoundError reports resolution exhaustion and carries the last physical
// path that was tried.
type NotFoundError struct {
	Name string
	Path string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("resolve: resource not found: %s", e.Path)
	}
	return fmt.Sprintf("resolve: resource %q not found (last tried %s)", e.Name, e.Path)
}

// Is lets errors.Is(err, ErrResourceNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrResourceNotFound
}
