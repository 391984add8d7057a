package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/paramirez/deckzter-seed/internal/catalog"
	"github.com/paramirez/deckzter-seed/pkg/database"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
)

const (
	insertPriceSetSQL = `
		INSERT INTO price_sets (id, variant_id)
		VALUES ($1, $2)`

	insertPriceSQL = `
		INSERT INTO prices (id, price_set_id, amount, currency_code)
		VALUES ($1, $2, $3, $4)`
)

// PriceSetRepository implements catalog.PriceSetRepository.
type PriceSetRepository struct {
	db database.DBTX
}

// NewPriceSetRepository creates a PostgreSQL-backed price set repository.
func NewPriceSetRepository(db database.DBTX) *PriceSetRepository {
	return &PriceSetRepository{db: db}
}

// CreatePriceSets inserts every set and its prices in one transaction.
func (r *PriceSetRepository) CreatePriceSets(ctx context.Context, sets []catalog.PriceSet) (err error) {
	if len(sets) == 0 {
		return nil
	}

	ctx, end := database.TraceQuery(ctx, "price_sets", "CreatePriceSets", insertPriceSetSQL)
	defer func() { end(err) }()

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		for i := range sets {
			ps := &sets[i]
			if ps.ID == "" {
				ps.ID = uuid.New().String()
			}
			if _, err := tx.Exec(ctx, insertPriceSetSQL, ps.ID, ps.VariantID); err != nil {
				if isUniqueViolation(err) {
					return apperrors.AlreadyExists("price set", "variant_id", ps.VariantID)
				}
				return fmt.Errorf("insert price set: %w", err)
			}

			for j := range ps.Prices {
				p := &ps.Prices[j]
				if p.ID == "" {
					p.ID = uuid.New().String()
				}
				if _, err := tx.Exec(ctx, insertPriceSQL, p.ID, ps.ID, p.Amount, p.CurrencyCode); err != nil {
					return fmt.Errorf("insert price %s: %w", p.CurrencyCode, err)
				}
			}
		}
		return nil
	})
}
