package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	invalidTextRepr     = "22P02"
	untranslatableChar  = "22021"
)

// mapError translates driver errors into domain errors. notFound is returned
// for sql.ErrNoRows; conflict for unique violations. Either may be nil, in
// which case the raw error is wrapped.
func mapError(op string, err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			if conflict != nil {
				return conflict
			}
		case foreignKeyViolation, invalidTextRepr:
			// A malformed or dangling id names a row that cannot exist.
			if notFound != nil {
				return notFound
			}
		case untranslatableChar:
			return domain.Validation("input contains characters that cannot be stored")
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
