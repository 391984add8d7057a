package importer

import (
	"context"
	"errors"
	"iter"

	"github.com/stretchr/testify/mock"

	"github.com/paramirez/deckzter-seed/internal/card"
	"github.com/paramirez/deckzter-seed/internal/catalog"
)

// --- Fetcher ---

type fakeFetcher struct {
	records []card.Record
	err     error
	queries []string
}

func (f *fakeFetcher) Search(_ context.Context, query string) iter.Seq2[card.Record, error] {
	f.queries = append(f.queries, query)
	return func(yield func(card.Record, error) bool) {
		for _, rec := range f.records {
			if !yield(rec, nil) {
				return
			}
		}
		if f.err != nil {
			yield(card.Record{}, f.err)
		}
	}
}

// --- Repositories ---

type mockCollectionRepository struct {
	mock.Mock
}

func (m *mockCollectionRepository) GetCollectionByTitle(ctx context.Context, title string) (*catalog.Collection, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Collection), args.Error(1)
}

func (m *mockCollectionRepository) CreateCollection(ctx context.Context, c *catalog.Collection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	args := m.Called(ctx, externalID)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepository) CreateProduct(ctx context.Context, p *catalog.Product) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		for i := range p.Variants {
			p.Variants[i].ID = "var-" + p.Variants[i].SKU
		}
	}
	return args.Error(0)
}

type mockReferenceRepository struct {
	mock.Mock
}

func (m *mockReferenceRepository) EnsureTag(ctx context.Context, value string) (*catalog.Tag, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Tag), args.Error(1)
}

func (m *mockReferenceRepository) EnsureProductType(ctx context.Context, value string) (*catalog.ProductType, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductType), args.Error(1)
}

func (m *mockReferenceRepository) DefaultStockLocation(ctx context.Context) (*catalog.StockLocation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.StockLocation), args.Error(1)
}

func (m *mockReferenceRepository) DefaultSalesChannel(ctx context.Context) (*catalog.SalesChannel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.SalesChannel), args.Error(1)
}

type mockPriceSetRepository struct {
	mock.Mock
}

func (m *mockPriceSetRepository) CreatePriceSets(ctx context.Context, sets []catalog.PriceSet) error {
	args := m.Called(ctx, sets)
	return args.Error(0)
}

type mockInventoryRepository struct {
	mock.Mock
}

func (m *mockInventoryRepository) CreateInventoryLevels(ctx context.Context, levels []catalog.InventoryLevel) error {
	args := m.Called(ctx, levels)
	return args.Error(0)
}

// fakeTx runs fn against the mock writers and records how each
// transaction ended.
type fakeTx struct {
	writers   catalog.ProductWriters
	commits   int
	rollbacks int
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context, w catalog.ProductWriters) error) error {
	if err := fn(ctx, f.writers); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// memoryCatalog keeps products, price sets and inventory levels in memory.
// Writes made inside InTx are staged and only kept when fn succeeds.
type memoryCatalog struct {
	products  map[string]*catalog.Product
	priceSets []catalog.PriceSet
	levels    []catalog.InventoryLevel

	// failPriceSets is the number of CreatePriceSets calls left to fail.
	failPriceSets int
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{products: map[string]*catalog.Product{}}
}

func (m *memoryCatalog) ExistsByExternalID(_ context.Context, externalID string) (bool, error) {
	_, ok := m.products[externalID]
	return ok, nil
}

func (m *memoryCatalog) CreateProduct(_ context.Context, p *catalog.Product) error {
	for i := range p.Variants {
		p.Variants[i].ID = "var-" + p.Variants[i].SKU
	}
	m.products[p.ExternalID] = p
	return nil
}

func (m *memoryCatalog) CreatePriceSets(_ context.Context, sets []catalog.PriceSet) error {
	if m.failPriceSets > 0 {
		m.failPriceSets--
		return errors.New("connection reset")
	}
	m.priceSets = append(m.priceSets, sets...)
	return nil
}

func (m *memoryCatalog) CreateInventoryLevels(_ context.Context, levels []catalog.InventoryLevel) error {
	m.levels = append(m.levels, levels...)
	return nil
}

func (m *memoryCatalog) InTx(ctx context.Context, fn func(ctx context.Context, w catalog.ProductWriters) error) error {
	staged := newMemoryCatalog()
	staged.failPriceSets = m.failPriceSets

	err := fn(ctx, catalog.ProductWriters{Products: staged, PriceSets: staged, Inventory: staged})
	m.failPriceSets = staged.failPriceSets
	if err != nil {
		return err
	}

	for id, p := range staged.products {
		m.products[id] = p
	}
	m.priceSets = append(m.priceSets, staged.priceSets...)
	m.levels = append(m.levels, staged.levels...)
	return nil
}

// --- Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCardImported(ctx context.Context, p *catalog.Product, v card.Variant) error {
	args := m.Called(ctx, p, v)
	return args.Error(0)
}
