package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/paramirez/deckzter-seed/internal/catalog"
	"github.com/paramirez/deckzter-seed/pkg/database"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
)

// The no-op update makes RETURNING yield the existing row on conflict.
const (
	upsertTagSQL = `
		INSERT INTO tags (id, value)
		VALUES ($1, $2)
		ON CONFLICT (value) DO UPDATE SET value = EXCLUDED.value
		RETURNING id, value`

	upsertProductTypeSQL = `
		INSERT INTO product_types (id, value)
		VALUES ($1, $2)
		ON CONFLICT (value) DO UPDATE SET value = EXCLUDED.value
		RETURNING id, value`

	selectDefaultStockLocationSQL = `
		SELECT id, name
		FROM stock_locations
		ORDER BY created_at, id
		LIMIT 1`

	selectDefaultSalesChannelSQL = `
		SELECT id, name
		FROM sales_channels
		ORDER BY created_at, id
		LIMIT 1`
)

// ReferenceRepository implements catalog.ReferenceRepository.
type ReferenceRepository struct {
	db database.DBTX
}

// NewReferenceRepository creates a PostgreSQL-backed reference repository.
func NewReferenceRepository(db database.DBTX) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// EnsureTag returns the tag with value, creating it when missing.
func (r *ReferenceRepository) EnsureTag(ctx context.Context, value string) (_ *catalog.Tag, err error) {
	ctx, end := database.TraceQuery(ctx, "tags", "EnsureTag", upsertTagSQL)
	defer func() { end(err) }()

	var t catalog.Tag
	if err = r.db.QueryRow(ctx, upsertTagSQL, uuid.New().String(), value).Scan(&t.ID, &t.Value); err != nil {
		return nil, fmt.Errorf("upsert tag %s: %w", value, err)
	}
	return &t, nil
}

// EnsureProductType returns the product type with value, creating it when
// missing.
func (r *ReferenceRepository) EnsureProductType(ctx context.Context, value string) (_ *catalog.ProductType, err error) {
	ctx, end := database.TraceQuery(ctx, "product_types", "EnsureProductType", upsertProductTypeSQL)
	defer func() { end(err) }()

	var pt catalog.ProductType
	if err = r.db.QueryRow(ctx, upsertProductTypeSQL, uuid.New().String(), value).Scan(&pt.ID, &pt.Value); err != nil {
		return nil, fmt.Errorf("upsert product type %s: %w", value, err)
	}
	return &pt, nil
}

// DefaultStockLocation returns the first stock location created.
func (r *ReferenceRepository) DefaultStockLocation(ctx context.Context) (_ *catalog.StockLocation, err error) {
	ctx, end := database.TraceQuery(ctx, "stock_locations", "DefaultStockLocation", selectDefaultStockLocationSQL)
	defer func() { end(err) }()

	var l catalog.StockLocation
	if err = r.db.QueryRow(ctx, selectDefaultStockLocationSQL).Scan(&l.ID, &l.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("stock location", "default")
		}
		return nil, fmt.Errorf("scan stock location: %w", err)
	}
	return &l, nil
}

// DefaultSalesChannel returns the first sales channel created.
func (r *ReferenceRepository) DefaultSalesChannel(ctx context.Context) (_ *catalog.SalesChannel, err error) {
	ctx, end := database.TraceQuery(ctx, "sales_channels", "DefaultSalesChannel", selectDefaultSalesChannelSQL)
	defer func() { end(err) }()

	var sc catalog.SalesChannel
	if err = r.db.QueryRow(ctx, selectDefaultSalesChannelSQL).Scan(&sc.ID, &sc.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("sales channel", "default")
		}
		return nil, fmt.Errorf("scan sales channel: %w", err)
	}
	return &sc, nil
}
