package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"dinendash-system/internal/apperrors"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// classify turns a gorm error into an apperrors error describing what.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(what + " not found")
	case errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation:
		// a malformed uuid names no row
		return apperrors.NotFound(what + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey),
		pgErr != nil && pgErr.Code == uniqueViolation:
		return apperrors.Wrap(apperrors.CodeAlreadyExists, what+" already exists", err)
	default:
		return apperrors.Internal("failed to access "+what, err)
	}
}

// affected reports NOT_FOUND when an update matched no rows.
func affected(res *gorm.DB, what string) error {
	if res.Error != nil {
		return classify(res.Error, what)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(what + " not found")
	}
	return nil
}
