// Package repository implements PostgreSQL persistence for the contest bot.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// wrapNoRows maps pgx.ErrNoRows to ErrNotFound and wraps everything else.
func wrapNoRows(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
