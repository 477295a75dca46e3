package fs

import "fmt"

// Error is the small failure taxonomy every file operation reports.
type Error byte

const (
	ErrNotFound Error = iota + 1
	ErrAlreadyExists
	ErrInvalidArgument
	ErrResourceExhausted
	ErrNotPermitted
)

func (e Error) Error() string {
	switch e {
	case ErrNotFound:
		return "rsfs: not found"
	case ErrAlreadyExists:
		return "rsfs: already exists"
	case ErrInvalidArgument:
		return "rsfs: invalid argument"
	case ErrResourceExhausted:
		return "rsfs: resource exhausted"
	case ErrNotPermitted:
		return "rsfs: operation not permitted"
	}
	return fmt.Sprintf("rsfs: error %d", byte(e))
}

// Code is the negative status code for e, for callers that want the
// classic int-returning surface.
func (e Error) Code() int {
	return -int(e)
}
