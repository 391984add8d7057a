package catalog

import "context"

// CollectionRepository persists collections.
type CollectionRepository interface {
	// GetCollectionByTitle returns apperrors.ErrNotFound when no collection
	// has the title.
	GetCollectionByTitle(ctx context.Context, title string) (*Collection, error)

	// CreateCollection inserts c. A duplicate title or handle is an
	// apperrors.ErrAlreadyExists.
	CreateCollection(ctx context.Context, c *Collection) error
}

// ProductRepository persists products together with their options and
// variants.
type ProductRepository interface {
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)

	// CreateProduct inserts the product, its tag and sales channel links,
	// options and variants atomically.
	CreateProduct(ctx context.Context, p *Product) error
}

// ReferenceRepository resolves the shared rows products point at.
type ReferenceRepository interface {
	// EnsureTag returns the tag with value, creating it if needed.
	EnsureTag(ctx context.Context, value string) (*Tag, error)

	// EnsureProductType returns the product type with value, creating it
	// if needed.
	EnsureProductType(ctx context.Context, value string) (*ProductType, error)

	// DefaultStockLocation returns the oldest stock location, or
	// apperrors.ErrNotFound when there is none.
	DefaultStockLocation(ctx context.Context) (*StockLocation, error)

	// DefaultSalesChannel returns the oldest sales channel, or
	// apperrors.ErrNotFound when there is none.
	DefaultSalesChannel(ctx context.Context) (*SalesChannel, error)
}

// PriceSetRepository persists variant prices.
type PriceSetRepository interface {
	CreatePriceSets(ctx context.Context, sets []PriceSet) error
}

// InventoryRepository persists stock levels.
type InventoryRepository interface {
	CreateInventoryLevels(ctx context.Context, levels []InventoryLevel) error
}

// ProductWriters are the repositories a new product, its prices and its
// stock are written through.
type ProductWriters struct {
	Products  ProductRepository
	PriceSets PriceSetRepository
	Inventory InventoryRepository
}

// TxRunner runs fn in one transaction. Every write fn makes through w
// commits together, or none does when fn returns an error.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, w ProductWriters) error) error
}
