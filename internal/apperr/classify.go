package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes we react to. See the PostgreSQL errcodes appendix.
const (
	codeInvalidTextRepresentation = "22P02"
	codeInvalidDatetimeFormat     = "22007"
	codeDatetimeFieldOverflow     = "22008"
	codeUniqueViolation           = "23505"
	codeForeignKeyViolation       = "23503"
	codeCheckViolation            = "23514"
	codeNotNullViolation          = "23502"
	codeAdminShutdown             = "57P01"
	codeCrashShutdown             = "57P02"
	codeCannotConnectNow          = "57P03"
	codeQueryCanceled             = "57014"
	codeTooManyConnections        = "53300"
)

// FromStorage classifies an error returned by the database driver.
// Already classified errors pass through untouched; anything unrecognised is
// returned wrapped with op so the caller still fails closed.
func FromStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != nil {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidTextRepresentation, codeInvalidDatetimeFormat, codeDatetimeFieldOverflow:
			return &Error{Op: op, Kind: ErrValidation, Msg: pgErr.Message, Err: err}
		case codeUniqueViolation:
			return &Error{Op: op, Kind: ErrConstraintViolation, Msg: "duplicate value for " + pgErr.ConstraintName, Err: fmt.Errorf("%w: %w", ErrDuplicate, err)}
		case codeForeignKeyViolation, codeCheckViolation, codeNotNullViolation:
			return &Error{Op: op, Kind: ErrConstraintViolation, Msg: pgErr.Message, Err: err}
		case codeAdminShutdown, codeCrashShutdown, codeCannotConnectNow, codeQueryCanceled, codeTooManyConnections:
			return Unavailable(op, err)
		}
		// Class 08: connection exception.
		if strings.HasPrefix(pgErr.Code, "08") {
			return Unavailable(op, err)
		}
		return &Error{Op: op, Kind: errUnclassified, Err: err}
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return Unavailable(op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Unavailable(op, err)
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return Unavailable(op, err)
	}

	return &Error{Op: op, Kind: errUnclassified, Err: err}
}

var errUnclassified = errors.New("storage error")
