package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/paramirez/deckzter-seed/internal/catalog"
	"github.com/paramirez/deckzter-seed/pkg/database"
)

const insertInventoryLevelSQL = `
	INSERT INTO inventory_levels (id, variant_id, location_id, stocked_quantity)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (variant_id, location_id) DO NOTHING`

// InventoryRepository implements catalog.InventoryRepository.
type InventoryRepository struct {
	db database.DBTX
}

// NewInventoryRepository creates a PostgreSQL-backed inventory repository.
func NewInventoryRepository(db database.DBTX) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// CreateInventoryLevels inserts levels in one transaction. Levels that
// already exist for a variant and location are left untouched.
func (r *InventoryRepository) CreateInventoryLevels(ctx context.Context, levels []catalog.InventoryLevel) (err error) {
	if len(levels) == 0 {
		return nil
	}

	ctx, end := database.TraceQuery(ctx, "inventory_levels", "CreateInventoryLevels", insertInventoryLevelSQL)
	defer func() { end(err) }()

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		for i := range levels {
			l := &levels[i]
			if l.ID == "" {
				l.ID = uuid.New().String()
			}
			if _, err := tx.Exec(ctx, insertInventoryLevelSQL, l.ID, l.VariantID, l.LocationID, l.StockedQuantity); err != nil {
				return fmt.Errorf("insert inventory level for variant %s: %w", l.VariantID, err)
			}
		}
		return nil
	})
}
