// Package search writes imported cards to an Elasticsearch index so the
// storefront can search them as soon as they exist.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/paramirez/deckzter-seed/internal/card"
	"github.com/paramirez/deckzter-seed/internal/catalog"
)

// CardDocument is the indexed form of one imported card variant.
type CardDocument struct {
	ProductID       string    `json:"product_id"`
	VariantID       string    `json:"variant_id,omitempty"`
	SKU             string    `json:"sku"`
	Handle          string    `json:"handle"`
	Title           string    `json:"title"`
	Subtitle        string    `json:"subtitle,omitempty"`
	OracleID        string    `json:"oracle_id"`
	SetCode         string    `json:"set_code"`
	SetName         string    `json:"set_name"`
	CollectorNumber string    `json:"collector_number"`
	Finish          string    `json:"finish"`
	Rarity          string    `json:"rarity"`
	Promo           bool      `json:"promo"`
	Price           int64     `json:"price"`
	Currency        string    `json:"currency"`
	ImageURL        string    `json:"image_url,omitempty"`
	ImportedAt      time.Time `json:"imported_at"`
}

// NewCardDocument builds the document for a created product and its variant.
func NewCardDocument(product *catalog.Product, v card.Variant, currency string) CardDocument {
	doc := CardDocument{
		ProductID:       product.ID,
		SKU:             v.SKU,
		Handle:          product.Handle,
		Title:           product.Title,
		Subtitle:        product.Subtitle,
		OracleID:        v.CardOracleID,
		SetCode:         strings.ToLower(v.SetCode),
		SetName:         v.SetName,
		CollectorNumber: v.CollectorNumber,
		Finish:          v.Finish,
		Rarity:          v.Rarity,
		Promo:           v.Promo,
		Price:           v.Price,
		Currency:        currency,
		ImageURL:        v.ImageURL,
		ImportedAt:      product.CreatedAt,
	}
	if len(product.Variants) > 0 {
		doc.VariantID = product.Variants[0].ID
	}
	return doc
}

// esErrorResponse is the error body Elasticsearch returns.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// Indexer writes card documents to Elasticsearch.
type Indexer struct {
	client    *elasticsearch.Client
	indexName string
	currency  string
	logger    *slog.Logger
}

// NewIndexer connects to the cluster at esURL and creates indexName with
// the card mapping when it does not exist yet. An empty indexName selects
// DefaultIndexName.
func NewIndexer(ctx context.Context, esURL, indexName, currency string, logger *slog.Logger) (*Indexer, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  []string{esURL},
		MaxRetries: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	ix := &Indexer{client: client, indexName: indexName, currency: currency, logger: logger}
	if err := ix.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index %s: %w", indexName, err)
	}
	return ix, nil
}

// Ping checks whether the cluster is reachable.
func (ix *Indexer) Ping(ctx context.Context) error {
	res, err := ix.client.Ping(ix.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (ix *Indexer) ensureIndex(ctx context.Context) error {
	res, err := ix.client.Indices.Exists([]string{ix.indexName}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		ix.logger.Info("elasticsearch index already exists", slog.String("index", ix.indexName))
		return nil
	}

	res, err = ix.client.Indices.Create(
		ix.indexName,
		ix.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		ix.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := responseError("create index", res); err != nil {
		// Another importer created it between the check and the create.
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return err
	}
	ix.logger.Info("elasticsearch index created", slog.String("index", ix.indexName))
	return nil
}

// Index writes doc, keyed by its SKU so re-indexing replaces it.
func (ix *Indexer) Index(ctx context.Context, doc CardDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal %s: %w", doc.SKU, err)
	}

	res, err := ix.client.Index(
		ix.indexName,
		bytes.NewReader(data),
		ix.client.Index.WithDocumentID(doc.SKU),
		ix.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := responseError("elasticsearch index", res); err != nil {
		return err
	}
	ix.logger.DebugContext(ctx, "card indexed", slog.String("sku", doc.SKU))
	return nil
}

// PublishCardImported indexes the product created for v.
func (ix *Indexer) PublishCardImported(ctx context.Context, product *catalog.Product, v card.Variant) error {
	return ix.Index(ctx, NewCardDocument(product, v, ix.currency))
}

func responseError(op string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var errResp esErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}
