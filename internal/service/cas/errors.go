package cas

import "fmt"

// ErrorKind classifies a content store failure.
type ErrorKind string

const (
	KindBackendUnavailable ErrorKind = "backend_unavailable"
	KindWriteFailed        ErrorKind = "write_failed"
	KindNotFound           ErrorKind = "not_found"
	KindCorrupt            ErrorKind = "corrupt"
)

type StoreError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches another *StoreError by kind, so errors.Is(err, &StoreError{Kind: KindCorrupt}) works.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	return ok && t.Kind == e.Kind
}

var errBackendUnavailable = &StoreError{
	Kind:    KindBackendUnavailable,
	Message: "content store backend not available",
}
