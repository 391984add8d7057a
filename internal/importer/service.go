// Package importer loads Scryfall printings into the catalog.
package importer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paramirez/deckzter-seed/internal/card"
	"github.com/paramirez/deckzter-seed/internal/catalog"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
	"github.com/paramirez/deckzter-seed/pkg/logger"
	"github.com/paramirez/deckzter-seed/pkg/validator"
)

var (
	// ErrNoSalesChannel is returned before anything is imported when the
	// catalog has no sales channel to publish to.
	ErrNoSalesChannel = apperrors.Conflict("NO_SALES_CHANNEL", "no sales channel is configured")

	// ErrNoStockLocation is returned when there is no stock location to
	// hold inventory.
	ErrNoStockLocation = apperrors.Conflict("NO_STOCK_LOCATION", "no stock location is configured")
)

// Fetcher yields the printings matching a search query.
type Fetcher interface {
	Search(ctx context.Context, query string) iter.Seq2[card.Record, error]
}

// Publisher announces created products.
type Publisher interface {
	PublishCardImported(ctx context.Context, product *catalog.Product, variant card.Variant) error
}

// Repositories groups the catalog stores the importer reads and writes.
// Products is used for lookups; new products are written through Tx so a
// product never exists without its price set and inventory level.
type Repositories struct {
	Collections catalog.CollectionRepository
	Products    catalog.ProductRepository
	References  catalog.ReferenceRepository
	Tx          catalog.TxRunner
}

// Config holds pricing and classification settings.
type Config struct {
	// ExchangeRate converts USD to the catalog currency.
	ExchangeRate float64
	// Currency is the ISO code prices are stored in.
	Currency string
	// ProductType is the type assigned to every imported product.
	ProductType string
}

// Request describes one import run.
type Request struct {
	Query string `json:"query" validate:"required,max=1000"`
}

// Report summarizes an import run.
type Report struct {
	RunID           string        `json:"run_id"`
	Query           string        `json:"query"`
	Cards           int           `json:"cards"`
	VariantsCreated int           `json:"variants_created"`
	VariantsSkipped int           `json:"variants_skipped"`
	Collections     int           `json:"collections_created"`
	Duration        time.Duration `json:"duration_ns"`
}

// Service runs imports.
type Service struct {
	fetcher   Fetcher
	repos     Repositories
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates an import service.
func NewService(fetcher Fetcher, repos Repositories, publisher Publisher, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		fetcher:   fetcher,
		repos:     repos,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// run carries the per-import state.
type run struct {
	refs        References
	locationID  string
	collections map[string]string
	report      *Report
	log         *slog.Logger
}

// Import fetches every printing matching req.Query and creates one product
// per variant not imported before. Records are processed in order; the
// first fetch or store error aborts the run and is returned together with
// the partial report.
func (s *Service) Import(ctx context.Context, req Request) (report *Report, err error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.New().String()
	ctx = logger.WithImportRunID(ctx, runID)
	log := logger.WithContext(ctx, s.logger)

	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		importRuns.WithLabelValues(status).Inc()
		importDuration.Observe(time.Since(start).Seconds())
		if report != nil {
			report.Duration = time.Since(start)
		}
	}()

	r, err := s.prepare(ctx, log)
	if err != nil {
		return nil, err
	}
	r.report = &Report{RunID: runID, Query: req.Query}

	log.InfoContext(ctx, "card import started", slog.String("query", req.Query))

	for rec, fetchErr := range s.fetcher.Search(ctx, req.Query) {
		if fetchErr != nil {
			return r.report, fmt.Errorf("fetch cards: %w", fetchErr)
		}
		if err := ctx.Err(); err != nil {
			return r.report, err
		}
		if err := s.importRecord(ctx, r, rec); err != nil {
			return r.report, err
		}
	}

	log.InfoContext(ctx, "card import finished",
		slog.Int("cards", r.report.Cards),
		slog.Int("variants_created", r.report.VariantsCreated),
		slog.Int("variants_skipped", r.report.VariantsSkipped),
		slog.Int("collections_created", r.report.Collections),
	)
	return r.report, nil
}

// prepare resolves the sales channel, product type, stock location and tags
// shared by every product of the run.
func (s *Service) prepare(ctx context.Context, log *slog.Logger) (*run, error) {
	channel, err := s.repos.References.DefaultSalesChannel(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, "no sales channel configured, nothing imported")
			return nil, ErrNoSalesChannel
		}
		return nil, fmt.Errorf("resolve sales channel: %w", err)
	}

	productType, err := s.repos.References.EnsureProductType(ctx, s.cfg.ProductType)
	if err != nil {
		return nil, fmt.Errorf("resolve product type: %w", err)
	}

	location, err := s.repos.References.DefaultStockLocation(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrNoStockLocation
		}
		return nil, fmt.Errorf("resolve stock location: %w", err)
	}

	tags := make(map[string]string, len(rarityTags)+2)
	for _, value := range append([]string{TagFoil, TagPromo}, rarityTags...) {
		tag, err := s.repos.References.EnsureTag(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("resolve tag %s: %w", value, err)
		}
		tags[value] = tag.ID
	}

	return &run{
		refs: References{
			TypeID:         productType.ID,
			SalesChannelID: channel.ID,
			Tags:           tags,
		},
		locationID:  location.ID,
		collections: make(map[string]string),
		log:         log,
	}, nil
}

func (s *Service) importRecord(ctx context.Context, r *run, rec card.Record) error {
	derived, err := card.Derive(rec, s.cfg.ExchangeRate)
	if err != nil {
		return err
	}
	r.report.Cards++

	collectionID, err := s.collectionFor(ctx, r, derived.Card.SetCode)
	if err != nil {
		return err
	}

	refs := r.refs
	refs.CollectionID = collectionID

	for _, v := range derived.Variants {
		if err := s.importVariant(ctx, r, derived.Card, v, refs); err != nil {
			return err
		}
	}
	return nil
}

// collectionFor returns the id of the set's collection, creating it on
// first use.
func (s *Service) collectionFor(ctx context.Context, r *run, setCode string) (string, error) {
	title := CollectionTitle(setCode)
	if id, ok := r.collections[title]; ok {
		return id, nil
	}

	existing, err := s.repos.Collections.GetCollectionByTitle(ctx, title)
	switch {
	case err == nil:
		r.collections[title] = existing.ID
		return existing.ID, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return "", fmt.Errorf("get collection %s: %w", title, err)
	}

	c := &catalog.Collection{
		ID:        uuid.New().String(),
		Title:     title,
		Handle:    title,
		CreatedAt: s.now(),
	}
	if err := s.repos.Collections.CreateCollection(ctx, c); err != nil {
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			return "", fmt.Errorf("create collection %s: %w", title, err)
		}
		// Another run created it since the lookup.
		existing, err := s.repos.Collections.GetCollectionByTitle(ctx, title)
		if err != nil {
			return "", fmt.Errorf("get collection %s: %w", title, err)
		}
		r.collections[title] = existing.ID
		return existing.ID, nil
	}

	r.report.Collections++
	r.collections[title] = c.ID
	r.log.InfoContext(ctx, "collection created", slog.String("title", title))
	return c.ID, nil
}

func (s *Service) importVariant(ctx context.Context, r *run, c card.Card, v card.Variant, refs References) error {
	externalID := ExternalID(c, v)

	exists, err := s.repos.Products.ExistsByExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("check %s: %w", externalID, err)
	}
	if exists {
		r.report.VariantsSkipped++
		variantsProcessed.WithLabelValues("skipped").Inc()
		return nil
	}

	product := BuildProduct(c, v, refs, s.now())
	var duplicate bool
	err = s.repos.Tx.InTx(ctx, func(ctx context.Context, w catalog.ProductWriters) error {
		if err := w.Products.CreateProduct(ctx, product); err != nil {
			duplicate = errors.Is(err, apperrors.ErrAlreadyExists)
			return fmt.Errorf("create product %s: %w", externalID, err)
		}
		variantID := product.Variants[0].ID

		priceSets := []catalog.PriceSet{{
			VariantID: variantID,
			Prices:    []catalog.Price{{Amount: v.Price, CurrencyCode: s.cfg.Currency}},
		}}
		if err := w.PriceSets.CreatePriceSets(ctx, priceSets); err != nil {
			return fmt.Errorf("create price set for %s: %w", v.SKU, err)
		}

		levels := []catalog.InventoryLevel{{
			VariantID:       variantID,
			LocationID:      r.locationID,
			StockedQuantity: 0,
		}}
		if err := w.Inventory.CreateInventoryLevels(ctx, levels); err != nil {
			return fmt.Errorf("create inventory level for %s: %w", v.SKU, err)
		}
		return nil
	})
	switch {
	case duplicate:
		// Truncated SKU hashes can collide; keep the first product.
		r.log.WarnContext(ctx, "product already exists, skipping",
			slog.String("external_id", externalID),
			slog.String("handle", product.Handle),
			slog.String("error", err.Error()),
		)
		r.report.VariantsSkipped++
		variantsProcessed.WithLabelValues("skipped").Inc()
		return nil
	case err != nil:
		return err
	}

	if err := s.publisher.PublishCardImported(ctx, product, v); err != nil {
		r.log.ErrorContext(ctx, "failed to publish card.imported event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	r.report.VariantsCreated++
	variantsProcessed.WithLabelValues("created").Inc()
	r.log.InfoContext(ctx, "card variant imported",
		slog.String("name", c.Name),
		slog.String("sku", v.SKU),
		slog.Int64("price", v.Price),
	)
	return nil
}
