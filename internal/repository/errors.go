package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateReaction is returned when a (subject, user) reaction row already exists.
	ErrDuplicateReaction = errors.New("reaction already exists")
	// ErrNotOwner is returned when a delete matched a row the viewer does not own.
	ErrNotOwner = errors.New("row is not owned by the viewer")
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique/primary key violation from
// either the postgres or the sqlite driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func classifyReactionErr(err error) error {
	if IsUniqueViolation(err) {
		return errors.Join(ErrDuplicateReaction, err)
	}
	return err
}
