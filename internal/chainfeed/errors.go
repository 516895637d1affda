package chainfeed

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrStreamClosed = errors.New("stream closed by node")

// ConnectionError marks a failure of the node connection itself, as opposed to a bad payload.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("chainfeed %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

func connErr(op string, err error) error {
	if err == nil {
		err = ErrStreamClosed
	}
	return &ConnectionError{Op: op, Err: err}
}
