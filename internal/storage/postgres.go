package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

const (
	codeForeignKeyViolation pq.ErrorCode = "23503"
	codeUniqueViolation     pq.ErrorCode = "23505"
	codeCheckViolation      pq.ErrorCode = "23514"
	codeNotNullViolation    pq.ErrorCode = "23502"
	codeNumericOutOfRange   pq.ErrorCode = "22003"
)

// Translate maps constraint violations reported by Postgres onto
// domain.ErrIntegrity and missing rows onto domain.ErrNotFound. Other errors
// are returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeForeignKeyViolation, codeUniqueViolation, codeCheckViolation,
			codeNotNullViolation, codeNumericOutOfRange:
			return fmt.Errorf("%w: %s", domain.ErrIntegrity, pqErr.Message)
		}
	}

	return err
}

func ConfigurePool(db *sql.DB, maxOpenConns int) {
	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
}
