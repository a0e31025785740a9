package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	gomysql "github.com/go-sql-driver/mysql"
)

// ErrColumnMismatch is returned when a streamed row does not line up with
// the table's column list.
var ErrColumnMismatch = errors.New("column mismatch")

// ConnectionError reports a failure to acquire or use a connection.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StatementError reports a statement rejected by the server.
type StatementError struct {
	Op        string
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement failed during %s: %v (%s)", e.Op, e.Err, e.Statement)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Code returns the server error number, or zero when the server did not
// send one.
func (e *StatementError) Code() uint16 {
	var myErr *gomysql.MySQLError
	if errors.As(e.Err, &myErr) {
		return myErr.Number
	}
	return 0
}

const maxStatementLen = 120

// classify wraps err as a ConnectionError or StatementError.
func classify(op, query string, err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, gomysql.ErrInvalidConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) {
		return &ConnectionError{Op: op, Err: err}
	}
	return &StatementError{Op: op, Statement: truncate(query, maxStatementLen), Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
