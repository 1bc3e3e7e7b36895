package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/nizami/nizami-backend/internal/repository"
)

const uniqueViolation = "23505"

// translateError maps driver errors onto repository sentinels
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}
