package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/paramirez/deckzter-seed/internal/catalog"
	"github.com/paramirez/deckzter-seed/pkg/database"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
)

const (
	existsByExternalIDSQL = `SELECT EXISTS(SELECT 1 FROM products WHERE external_id = $1)`

	insertProductSQL = `
		INSERT INTO products (id, title, subtitle, description, handle, status, external_id,
		                      collection_id, type_id, images, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, NULLIF($9, '')::uuid, $10, $11, $12, $13)`

	insertProductTagSQL = `
		INSERT INTO product_tags (product_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	insertProductSalesChannelSQL = `
		INSERT INTO product_sales_channels (product_id, sales_channel_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	insertProductOptionSQL = `
		INSERT INTO product_options (id, product_id, title, option_values)
		VALUES ($1, $2, $3, $4)`

	insertProductVariantSQL = `
		INSERT INTO product_variants (id, product_id, title, sku, manage_inventory, options, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// ProductRepository implements catalog.ProductRepository.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// ExistsByExternalID reports whether a product with externalID was already
// imported.
func (r *ProductRepository) ExistsByExternalID(ctx context.Context, externalID string) (_ bool, err error) {
	ctx, end := database.TraceQuery(ctx, "products", "ExistsByExternalID", existsByExternalIDSQL)
	defer func() { end(err) }()

	var exists bool
	if err = r.db.QueryRow(ctx, existsByExternalIDSQL, externalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product external id: %w", err)
	}
	return exists, nil
}

// CreateProduct inserts p with its links, options and variants in one
// transaction. Missing option and variant ids are generated.
func (r *ProductRepository) CreateProduct(ctx context.Context, p *catalog.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "products", "CreateProduct", insertProductSQL)
	defer func() { end(err) }()

	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	images := p.Images
	if images == nil {
		images = []string{}
	}

	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertProductSQL,
			p.ID,
			p.Title,
			p.Subtitle,
			p.Description,
			p.Handle,
			string(p.Status),
			p.ExternalID,
			p.CollectionID,
			p.TypeID,
			images,
			metadataJSON,
			p.CreatedAt,
			p.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return apperrors.AlreadyExists("product", "handle", p.Handle)
			}
			return fmt.Errorf("insert product: %w", err)
		}

		for _, tagID := range p.TagIDs {
			if _, err := tx.Exec(ctx, insertProductTagSQL, p.ID, tagID); err != nil {
				return fmt.Errorf("link product tag %s: %w", tagID, err)
			}
		}

		for _, channelID := range p.SalesChannelIDs {
			if _, err := tx.Exec(ctx, insertProductSalesChannelSQL, p.ID, channelID); err != nil {
				return fmt.Errorf("link product sales channel %s: %w", channelID, err)
			}
		}

		for i := range p.Options {
			opt := &p.Options[i]
			if opt.ID == "" {
				opt.ID = uuid.New().String()
			}
			if _, err := tx.Exec(ctx, insertProductOptionSQL, opt.ID, p.ID, opt.Title, opt.Values); err != nil {
				return fmt.Errorf("insert product option %s: %w", opt.Title, err)
			}
		}

		for i := range p.Variants {
			v := &p.Variants[i]
			if v.ID == "" {
				v.ID = uuid.New().String()
			}
			v.ProductID = p.ID

			options := v.Options
			if options == nil {
				options = map[string]string{}
			}
			optionsJSON, err := json.Marshal(options)
			if err != nil {
				return fmt.Errorf("marshal variant options: %w", err)
			}

			if _, err := tx.Exec(ctx, insertProductVariantSQL,
				v.ID, v.ProductID, v.Title, v.SKU, v.ManageInventory, optionsJSON, v.CreatedAt,
			); err != nil {
				if isUniqueViolation(err) {
					return apperrors.AlreadyExists("product variant", "sku", v.SKU)
				}
				return fmt.Errorf("insert product variant %s: %w", v.SKU, err)
			}
		}

		return nil
	})
	return err
}
