package store

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound means the query ran and matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrBackend means the query could not be run or failed in postgres.
	ErrBackend = errors.New("store backend error")
)

// BackendError carries the failing operation and, when postgres reported one,
// its SQLSTATE code.
type BackendError struct {
	Op        string
	Code      string
	Retryable bool
	Err       error
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: postgres %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is lets callers match any BackendError with errors.Is(err, ErrBackend).
func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// retryable SQLSTATE codes: serialization failure, deadlock, admin shutdown,
// cannot connect now, too many connections.
var retryableCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"57P01": true,
	"57P03": true,
	"53300": true,
}

// classify turns a driver error into a BackendError. ErrNotFound passes through.
func classify(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}

	be := &BackendError{Op: op, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		be.Code = pgErr.Code
		be.Retryable = retryableCodes[pgErr.Code]
	} else if pgconn.Timeout(err) {
		be.Retryable = true
	}
	return be
}

// IsNotFound reports whether err means no matching row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
