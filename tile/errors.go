package tile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex reports an order or pixel index outside its valid range.
	ErrInvalidIndex = errors.New("hips: invalid index")

	// ErrInvalidSource reports a source image that cannot be tiled.
	ErrInvalidSource = errors.New("hips: invalid source image")

	// ErrResampleFailure reports a resize that did not produce the requested size.
	ErrResampleFailure = errors.New("hips: resample failure")
)

// Error attaches the failing tile to an error.
type Error struct {
	ID  ID
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("order %d pixel %d: %v", e.ID.Order, e.ID.Pix, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
