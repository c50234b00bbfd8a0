package preprocess

import (
	"errors"
	"fmt"
)

var errNilImage = errors.New("nil image")

// OpError reports which pipeline operation failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("preprocess %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
