package importer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paramirez/deckzter-seed/internal/card"
	"github.com/paramirez/deckzter-seed/internal/catalog"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
	"github.com/paramirez/deckzter-seed/pkg/logger"
	"github.com/paramirez/deckzter-seed/pkg/validator"
)

// --- Test Helpers ---

type testDeps struct {
	fetcher     *fakeFetcher
	collections *mockCollectionRepository
	products    *mockProductRepository
	references  *mockReferenceRepository
	priceSets   *mockPriceSetRepository
	inventory   *mockInventoryRepository
	tx          *fakeTx
	publisher   *mockPublisher
}

func newTestService(records ...card.Record) (*Service, *testDeps) {
	d := &testDeps{
		fetcher:     &fakeFetcher{records: records},
		collections: &mockCollectionRepository{},
		products:    &mockProductRepository{},
		references:  &mockReferenceRepository{},
		priceSets:   &mockPriceSetRepository{},
		inventory:   &mockInventoryRepository{},
		publisher:   &mockPublisher{},
	}
	d.tx = &fakeTx{writers: catalog.ProductWriters{
		Products:  d.products,
		PriceSets: d.priceSets,
		Inventory: d.inventory,
	}}
	svc := NewService(d.fetcher, Repositories{
		Collections: d.collections,
		Products:    d.products,
		References:  d.references,
		Tx:          d.tx,
	}, d.publisher, Config{ExchangeRate: 4000, Currency: "cop", ProductType: "Carta"},
		logger.NewWithWriter("test", "error", io.Discard))
	svc.now = func() time.Time { return fixedNow }
	return svc, d
}

func (d *testDeps) expectReferences() {
	d.references.On("DefaultSalesChannel", mock.Anything).
		Return(&catalog.SalesChannel{ID: "sc-1", Name: "Default Sales Channel"}, nil)
	d.references.On("EnsureProductType", mock.Anything, "Carta").
		Return(&catalog.ProductType{ID: "type-1", Value: "Carta"}, nil)
	d.references.On("DefaultStockLocation", mock.Anything).
		Return(&catalog.StockLocation{ID: "loc-1", Name: "Main"}, nil)
	for value, id := range testTags {
		d.references.On("EnsureTag", mock.Anything, value).Return(&catalog.Tag{ID: id, Value: value}, nil)
	}
}

func (d *testDeps) assertExpectations(t *testing.T) {
	t.Helper()
	d.collections.AssertExpectations(t)
	d.products.AssertExpectations(t)
	d.references.AssertExpectations(t)
	d.priceSets.AssertExpectations(t)
	d.inventory.AssertExpectations(t)
	d.publisher.AssertExpectations(t)
}

func strPtr(s string) *string { return &s }

func sheoldredRecord() card.Record {
	return card.Record{
		ID:              "card-1",
		OracleID:        "4c5ffa83-c88d-4f5d-851e-a642b229d596",
		Name:            "Sheoldred, the Apocalypse",
		OracleText:      "Deathtouch",
		SetCode:         "stc",
		SetName:         "Special Guests",
		CollectorNumber: "346",
		Rarity:          "mythic",
		ReleasedAt:      "2023-11-10",
		Finishes:        []string{"nonfoil", "foil"},
		ImageURIs:       &card.ImageURIs{Normal: "https://img.example/sheoldred.jpg"},
		Prices:          card.Prices{USD: strPtr("3.50")},
	}
}

// --- Tests ---

func TestImport_CreatesProductsForNewVariants(t *testing.T) {
	svc, d := newTestService(sheoldredRecord())
	d.expectReferences()

	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").
		Return(nil, apperrors.NotFound("collection", "MTG-STC")).Once()
	d.collections.On("CreateCollection", mock.Anything, mock.MatchedBy(func(c *catalog.Collection) bool {
		return c.Title == "MTG-STC" && c.Handle == "MTG-STC" && c.ID != ""
	})).Return(nil).Once()

	d.products.On("ExistsByExternalID", mock.Anything, "card-1_ST2EBA08-STC-NONFOIL-F346").Return(false, nil)
	d.products.On("ExistsByExternalID", mock.Anything, "card-1_ST2EBA08-STC-FOIL-F346").Return(false, nil)

	var created []*catalog.Product
	d.products.On("CreateProduct", mock.Anything, mock.AnythingOfType("*catalog.Product")).
		Run(func(args mock.Arguments) { created = append(created, args.Get(1).(*catalog.Product)) }).
		Return(nil).Twice()

	d.priceSets.On("CreatePriceSets", mock.Anything, []catalog.PriceSet{{
		VariantID: "var-ST2EBA08-STC-NONFOIL-F346",
		Prices:    []catalog.Price{{Amount: 1_400_000, CurrencyCode: "cop"}},
	}}).Return(nil).Once()
	d.priceSets.On("CreatePriceSets", mock.Anything, []catalog.PriceSet{{
		VariantID: "var-ST2EBA08-STC-FOIL-F346",
		Prices:    []catalog.Price{{Amount: 0, CurrencyCode: "cop"}},
	}}).Return(nil).Once()

	d.inventory.On("CreateInventoryLevels", mock.Anything, mock.MatchedBy(func(levels []catalog.InventoryLevel) bool {
		return len(levels) == 1 && levels[0].LocationID == "loc-1" && levels[0].StockedQuantity == 0
	})).Return(nil).Twice()

	d.publisher.On("PublishCardImported", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "e:stc", report.Query)
	assert.Equal(t, 1, report.Cards)
	assert.Equal(t, 2, report.VariantsCreated)
	assert.Zero(t, report.VariantsSkipped)
	assert.Equal(t, 1, report.Collections)
	assert.Equal(t, []string{"e:stc"}, d.fetcher.queries)

	require.Len(t, created, 2)
	assert.Equal(t, "", created[0].Subtitle)
	assert.Equal(t, "FOIL", created[1].Subtitle)
	assert.Equal(t, []string{"tag-mythic"}, created[0].TagIDs)
	assert.Equal(t, []string{"tag-foil", "tag-mythic"}, created[1].TagIDs)
	assert.Equal(t, "sc-1", created[0].SalesChannelIDs[0])
	assert.Equal(t, "type-1", created[0].TypeID)
	assert.Equal(t, created[0].CollectionID, created[1].CollectionID)
	assert.Equal(t, 2, d.tx.commits)
	assert.Zero(t, d.tx.rollbacks)

	d.assertExpectations(t)
}

func TestImport_SkipsExistingVariants(t *testing.T) {
	svc, d := newTestService(sheoldredRecord())
	d.expectReferences()

	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").
		Return(&catalog.Collection{ID: "col-1", Title: "MTG-STC"}, nil).Once()
	d.products.On("ExistsByExternalID", mock.Anything, mock.Anything).Return(true, nil).Twice()

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Cards)
	assert.Zero(t, report.VariantsCreated)
	assert.Equal(t, 2, report.VariantsSkipped)
	assert.Zero(t, report.Collections)
	d.products.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	d.assertExpectations(t)
}

func TestImport_CollectionLookedUpOncePerSet(t *testing.T) {
	second := sheoldredRecord()
	second.ID = "card-2"
	second.CollectorNumber = "347"

	svc, d := newTestService(sheoldredRecord(), second)
	d.expectReferences()

	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").
		Return(&catalog.Collection{ID: "col-1", Title: "MTG-STC"}, nil).Once()
	d.products.On("ExistsByExternalID", mock.Anything, mock.Anything).Return(true, nil).Times(4)

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Cards)
	assert.Equal(t, 4, report.VariantsSkipped)
	d.assertExpectations(t)
}

func TestImport_DuplicateProductCountsAsSkipped(t *testing.T) {
	rec := sheoldredRecord()
	rec.Finishes = []string{"nonfoil"}
	svc, d := newTestService(rec)
	d.expectReferences()

	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").
		Return(&catalog.Collection{ID: "col-1"}, nil)
	d.products.On("ExistsByExternalID", mock.Anything, mock.Anything).Return(false, nil)
	d.products.On("CreateProduct", mock.Anything, mock.Anything).
		Return(apperrors.AlreadyExists("product", "handle", "sheoldred")).Once()

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.VariantsSkipped)
	assert.Zero(t, report.VariantsCreated)
	d.priceSets.AssertNotCalled(t, "CreatePriceSets", mock.Anything, mock.Anything)
	assert.Equal(t, 1, d.tx.rollbacks)
	d.assertExpectations(t)
}

func TestImport_PriceSetFailureRollsBackProduct(t *testing.T) {
	rec := sheoldredRecord()
	rec.Finishes = []string{"nonfoil"}
	svc, d := newTestService(rec)
	d.expectReferences()

	dbErr := errors.New("connection reset")
	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").Return(&catalog.Collection{ID: "col-1"}, nil)
	d.products.On("ExistsByExternalID", mock.Anything, mock.Anything).Return(false, nil)
	d.products.On("CreateProduct", mock.Anything, mock.Anything).Return(nil).Once()
	d.priceSets.On("CreatePriceSets", mock.Anything, mock.Anything).Return(dbErr).Once()

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "create price set for ST2EBA08-STC-NONFOIL-F346")
	require.NotNil(t, report)
	assert.Zero(t, report.VariantsCreated)
	assert.Equal(t, 1, d.tx.rollbacks)
	assert.Zero(t, d.tx.commits)
	d.inventory.AssertNotCalled(t, "CreateInventoryLevels", mock.Anything, mock.Anything)
	d.publisher.AssertNotCalled(t, "PublishCardImported", mock.Anything, mock.Anything, mock.Anything)
}

func TestImport_RerunAfterFailedWriteCreatesProduct(t *testing.T) {
	rec := sheoldredRecord()
	rec.Finishes = []string{"nonfoil"}
	store := newMemoryCatalog()
	store.failPriceSets = 1

	svc, d := newTestService(rec)
	svc.repos.Products = store
	svc.repos.Tx = store
	d.expectReferences()
	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").Return(&catalog.Collection{ID: "col-1"}, nil)
	d.publisher.On("PublishCardImported", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.Error(t, err)
	assert.Empty(t, store.products, "a failed price write leaves no product behind")

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.VariantsCreated)
	assert.Zero(t, report.VariantsSkipped)
	assert.Len(t, store.products, 1)
	assert.Len(t, store.priceSets, 1)
	assert.Len(t, store.levels, 1)
}

func TestImport_CollectionCreatedConcurrently(t *testing.T) {
	svc, d := newTestService(sheoldredRecord())
	d.expectReferences()

	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").
		Return(nil, apperrors.NotFound("collection", "MTG-STC")).Once()
	d.collections.On("CreateCollection", mock.Anything, mock.Anything).
		Return(apperrors.AlreadyExists("collection", "title", "MTG-STC")).Once()
	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").
		Return(&catalog.Collection{ID: "col-other", Title: "MTG-STC"}, nil).Once()
	d.products.On("ExistsByExternalID", mock.Anything, mock.Anything).Return(true, nil).Twice()

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.NoError(t, err)
	assert.Zero(t, report.Collections)
	assert.Equal(t, 2, report.VariantsSkipped)
	d.assertExpectations(t)
}

func TestImport_PublishFailureDoesNotFailRun(t *testing.T) {
	rec := sheoldredRecord()
	rec.Finishes = []string{"nonfoil"}
	svc, d := newTestService(rec)
	d.expectReferences()

	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").Return(&catalog.Collection{ID: "col-1"}, nil)
	d.products.On("ExistsByExternalID", mock.Anything, mock.Anything).Return(false, nil)
	d.products.On("CreateProduct", mock.Anything, mock.Anything).Return(nil)
	d.priceSets.On("CreatePriceSets", mock.Anything, mock.Anything).Return(nil)
	d.inventory.On("CreateInventoryLevels", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("PublishCardImported", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable")).Once()

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.VariantsCreated)
	d.assertExpectations(t)
}

func TestImport_NoSalesChannel(t *testing.T) {
	svc, d := newTestService(sheoldredRecord())
	d.references.On("DefaultSalesChannel", mock.Anything).
		Return(nil, apperrors.NotFound("sales channel", "default"))

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrNoSalesChannel)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
	assert.Empty(t, d.fetcher.queries, "nothing is fetched without a sales channel")
	d.assertExpectations(t)
}

func TestImport_NoStockLocation(t *testing.T) {
	svc, d := newTestService()
	d.references.On("DefaultSalesChannel", mock.Anything).Return(&catalog.SalesChannel{ID: "sc-1"}, nil)
	d.references.On("EnsureProductType", mock.Anything, "Carta").Return(&catalog.ProductType{ID: "type-1"}, nil)
	d.references.On("DefaultStockLocation", mock.Anything).Return(nil, apperrors.ErrNotFound)

	_, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	assert.ErrorIs(t, err, ErrNoStockLocation)
	d.assertExpectations(t)
}

func TestImport_InvalidRequest(t *testing.T) {
	svc, d := newTestService()

	_, err := svc.Import(context.Background(), Request{})
	require.Error(t, err)

	var verr *validator.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "query")
	d.assertExpectations(t)
}

func TestImport_FetchErrorReturnsPartialReport(t *testing.T) {
	svc, d := newTestService(sheoldredRecord())
	d.fetcher.err = errors.New("scryfall unavailable")
	d.expectReferences()

	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").Return(&catalog.Collection{ID: "col-1"}, nil)
	d.products.On("ExistsByExternalID", mock.Anything, mock.Anything).Return(true, nil)

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch cards")
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Cards)
	assert.Equal(t, 2, report.VariantsSkipped)
}

func TestImport_InvalidPriceAborts(t *testing.T) {
	rec := sheoldredRecord()
	rec.Prices.USD = strPtr("n/a")
	svc, d := newTestService(rec)
	d.expectReferences()

	report, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	assert.ErrorIs(t, err, card.ErrInvalidPrice)
	require.NotNil(t, report)
	assert.Zero(t, report.Cards)
}

func TestImport_StoreErrorAborts(t *testing.T) {
	svc, d := newTestService(sheoldredRecord())
	d.expectReferences()

	dbErr := errors.New("connection reset")
	d.collections.On("GetCollectionByTitle", mock.Anything, "MTG-STC").Return(&catalog.Collection{ID: "col-1"}, nil)
	d.products.On("ExistsByExternalID", mock.Anything, mock.Anything).Return(false, dbErr).Once()

	_, err := svc.Import(context.Background(), Request{Query: "e:stc"})
	assert.ErrorIs(t, err, dbErr)
	d.products.AssertNumberOfCalls(t, "ExistsByExternalID", 1)
}

func TestImport_ContextCancelled(t *testing.T) {
	svc, d := newTestService(sheoldredRecord())
	d.expectReferences()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, Request{Query: "e:stc"})
	assert.ErrorIs(t, err, context.Canceled)
	d.collections.AssertNotCalled(t, "GetCollectionByTitle", mock.Anything, mock.Anything)
}
