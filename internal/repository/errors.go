package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrUniqueConflict = errors.New("unique constraint violated")
	ErrValidation     = errors.New("validation failed")
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindUniqueConflict ErrorKind = "unique_conflict"
	KindNotFound       ErrorKind = "not_found"
)

// PersistenceError carries the failed operation and its classification.
// errors.Is matches it against ErrNotFound, ErrUniqueConflict and ErrValidation.
type PersistenceError struct {
	Kind   ErrorKind
	Op     string
	Detail string
	Err    error
}

func (e *PersistenceError) Error() string {
	msg := e.Op
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUniqueConflict:
		return e.Kind == KindUniqueConflict
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

func notFound(op string) error {
	return &PersistenceError{Kind: KindNotFound, Op: op, Detail: "not found"}
}

// wrap classifies a driver error. Errors it does not recognise are wrapped
// plainly with the operation name.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(op)
	}
	if isUniqueViolation(err) {
		return &PersistenceError{Kind: KindUniqueConflict, Op: op, Detail: "already exists", Err: err}
	}
	if isCheckViolation(err) {
		return &PersistenceError{Kind: KindValidation, Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23514" || pqErr.Code == "23502"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_CHECK || code == sqlite3.SQLITE_CONSTRAINT_NOTNULL
	}
	return false
}
