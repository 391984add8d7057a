// Package postgres implements the catalog repositories on PostgreSQL.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/paramirez/deckzter-seed/internal/catalog"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var (
	_ catalog.CollectionRepository = (*CollectionRepository)(nil)
	_ catalog.ProductRepository    = (*ProductRepository)(nil)
	_ catalog.ReferenceRepository  = (*ReferenceRepository)(nil)
	_ catalog.PriceSetRepository   = (*PriceSetRepository)(nil)
	_ catalog.InventoryRepository  = (*InventoryRepository)(nil)
)
