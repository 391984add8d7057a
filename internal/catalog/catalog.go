// Package catalog holds the storefront entities cards are imported into.
package catalog

import "time"

// ProductStatus is the publication state of a product.
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusPublished ProductStatus = "published"
)

// Collection groups the products of one card set.
type Collection struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag is a free-form product label such as FOIL or RARE.
type Tag struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// ProductType classifies products.
type ProductType struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// StockLocation is a place inventory is held.
type StockLocation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SalesChannel is a storefront products are published to.
type SalesChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductOption is a purchasable dimension and its allowed values.
type ProductOption struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Values []string `json:"values"`
}

// ProductVariant is the sellable unit of a product.
type ProductVariant struct {
	ID              string            `json:"id"`
	ProductID       string            `json:"product_id"`
	Title           string            `json:"title"`
	SKU             string            `json:"sku"`
	ManageInventory bool              `json:"manage_inventory"`
	Options         map[string]string `json:"options"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Product is a catalog listing. Imported cards produce one product per
// variant, identified by ExternalID.
type Product struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Subtitle        string            `json:"subtitle"`
	Description     string            `json:"description"`
	Handle          string            `json:"handle"`
	Status          ProductStatus     `json:"status"`
	ExternalID      string            `json:"external_id"`
	CollectionID    string            `json:"collection_id"`
	TypeID          string            `json:"type_id"`
	Images          []string          `json:"images"`
	TagIDs          []string          `json:"tag_ids"`
	SalesChannelIDs []string          `json:"sales_channel_ids"`
	Options         []ProductOption   `json:"options"`
	Variants        []ProductVariant  `json:"variants"`
	Metadata        map[string]string `json:"metadata"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Price is an amount in minor units of CurrencyCode.
type Price struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

// PriceSet holds the prices of one variant.
type PriceSet struct {
	ID        string  `json:"id"`
	VariantID string  `json:"variant_id"`
	Prices    []Price `json:"prices"`
}

// InventoryLevel is the stock of a variant at a location.
type InventoryLevel struct {
	ID              string `json:"id"`
	VariantID       string `json:"variant_id"`
	LocationID      string `json:"location_id"`
	StockedQuantity int    `json:"stocked_quantity"`
}
