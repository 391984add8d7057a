package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/paramirez/deckzter-seed/internal/catalog"
	"github.com/paramirez/deckzter-seed/pkg/database"
)

// TxRunner implements catalog.TxRunner. The repositories handed to fn share
// one transaction; their own transactions become savepoints inside it.
type TxRunner struct {
	db database.DBTX
}

// NewTxRunner creates a TxRunner over db.
func NewTxRunner(db database.DBTX) *TxRunner {
	return &TxRunner{db: db}
}

// InTx runs fn inside a transaction and commits when fn returns nil.
func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context, w catalog.ProductWriters) error) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, catalog.ProductWriters{
			Products:  NewProductRepository(tx),
			PriceSets: NewPriceSetRepository(tx),
			Inventory: NewInventoryRepository(tx),
		})
	})
}
