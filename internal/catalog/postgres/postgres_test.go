package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paramirez/deckzter-seed/internal/catalog"
	"github.com/paramirez/deckzter-seed/pkg/database"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
)

// ─── helpers ────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var (
	now          = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	uniqueErr    = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	errConnReset = errors.New("connection reset by peer")
)

func sampleProduct() *catalog.Product {
	return &catalog.Product{
		ID:              "prod-1",
		Title:           "Sheoldred, the Apocalypse",
		Subtitle:        "FOIL",
		Description:     "Deathtouch",
		Handle:          "sheoldred-the-apocalypse-st2eba08-stc-foil-f346",
		Status:          catalog.ProductStatusPublished,
		ExternalID:      "card-1_ST2EBA08-STC-FOIL-F346",
		CollectionID:    "col-1",
		TypeID:          "type-1",
		Images:          []string{"https://img.example/a.jpg"},
		TagIDs:          []string{"tag-foil", "tag-mythic"},
		SalesChannelIDs: []string{"sc-1"},
		Options:         []catalog.ProductOption{{Title: "finishes", Values: []string{"foil"}}},
		Variants: []catalog.ProductVariant{{
			Title:           "Sheoldred, the Apocalypse STC 346",
			SKU:             "ST2EBA08-STC-FOIL-F346",
			ManageInventory: true,
			Options:         map[string]string{"finishes": "foil"},
			CreatedAt:       now,
		}},
		Metadata:  map[string]string{"rarity": "mythic"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ─── isUniqueViolation ──────────────────────────────────────────────────────

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(uniqueErr))
	assert.True(t, isUniqueViolation(errors.Join(errors.New("wrapped"), uniqueErr)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errConnReset))
	assert.False(t, isUniqueViolation(nil))
}

// ─── CollectionRepository ───────────────────────────────────────────────────

func TestCollectionRepository_GetCollectionByTitle(t *testing.T) {
	mock := newMock(t)
	repo := NewCollectionRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM collections WHERE title").
		WithArgs("MTG-STC").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "handle", "created_at"}).
			AddRow("col-1", "MTG-STC", "MTG-STC", now))

	c, err := repo.GetCollectionByTitle(context.Background(), "MTG-STC")
	require.NoError(t, err)
	assert.Equal(t, &catalog.Collection{ID: "col-1", Title: "MTG-STC", Handle: "MTG-STC", CreatedAt: now}, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRepository_GetCollectionByTitle_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCollectionRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM collections WHERE title").
		WithArgs("MTG-ZZZ").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetCollectionByTitle(context.Background(), "MTG-ZZZ")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRepository_CreateCollection(t *testing.T) {
	mock := newMock(t)
	repo := NewCollectionRepository(mock)
	c := &catalog.Collection{ID: "col-1", Title: "MTG-STC", Handle: "MTG-STC", CreatedAt: now}

	mock.ExpectExec("INSERT INTO collections").
		WithArgs(c.ID, c.Title, c.Handle, c.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.CreateCollection(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRepository_CreateCollection_Duplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewCollectionRepository(mock)

	mock.ExpectExec("INSERT INTO collections").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(uniqueErr)

	err := repo.CreateCollection(context.Background(), &catalog.Collection{ID: "col-1", Title: "MTG-STC"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── ProductRepository ──────────────────────────────────────────────────────

func TestProductRepository_ExistsByExternalID(t *testing.T) {
	for _, exists := range []bool{true, false} {
		mock := newMock(t)
		repo := NewProductRepository(mock)

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("card-1_SKU").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(exists))

		got, err := repo.ExistsByExternalID(context.Background(), "card-1_SKU")
		require.NoError(t, err)
		assert.Equal(t, exists, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestProductRepository_ExistsByExternalID_Error(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").WithArgs("x").WillReturnError(errConnReset)

	_, err := repo.ExistsByExternalID(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, errConnReset)
}

func TestProductRepository_CreateProduct(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := sampleProduct()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Title, p.Subtitle, p.Description, p.Handle, "published", p.ExternalID,
			p.CollectionID, p.TypeID, p.Images, []byte(`{"rarity":"mythic"}`), now, now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO product_tags").WithArgs("prod-1", "tag-foil").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO product_tags").WithArgs("prod-1", "tag-mythic").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO product_sales_channels").WithArgs("prod-1", "sc-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO product_options").
		WithArgs(pgxmock.AnyArg(), "prod-1", "finishes", []string{"foil"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO product_variants").
		WithArgs(pgxmock.AnyArg(), "prod-1", "Sheoldred, the Apocalypse STC 346", "ST2EBA08-STC-FOIL-F346",
			true, []byte(`{"finishes":"foil"}`), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateProduct(context.Background(), p))

	assert.NotEmpty(t, p.Options[0].ID)
	assert.NotEmpty(t, p.Variants[0].ID)
	assert.Equal(t, "prod-1", p.Variants[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_CreateProduct_DuplicateHandleRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := sampleProduct()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").WillReturnError(uniqueErr)
	mock.ExpectRollback()

	err := repo.CreateProduct(context.Background(), p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Contains(t, err.Error(), p.Handle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_CreateProduct_DuplicateSKURollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := sampleProduct()
	p.TagIDs = nil
	p.SalesChannelIDs = nil
	p.Options = nil

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO product_variants").WillReturnError(uniqueErr)
	mock.ExpectRollback()

	err := repo.CreateProduct(context.Background(), p)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "ST2EBA08-STC-FOIL-F346")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_CreateProduct_NilImagesStoredEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := &catalog.Product{ID: "prod-2", Handle: "h", Status: catalog.ProductStatusDraft, CreatedAt: now, UpdatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").
		WithArgs("prod-2", "", "", "", "h", "draft", "", "", "", []string{}, []byte("{}"), now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateProduct(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── ReferenceRepository ────────────────────────────────────────────────────

func TestReferenceRepository_EnsureTag(t *testing.T) {
	mock := newMock(t)
	repo := NewReferenceRepository(mock)

	mock.ExpectQuery("INSERT INTO tags .+ ON CONFLICT").
		WithArgs(pgxmock.AnyArg(), "FOIL").
		WillReturnRows(pgxmock.NewRows([]string{"id", "value"}).AddRow("tag-foil", "FOIL"))

	tag, err := repo.EnsureTag(context.Background(), "FOIL")
	require.NoError(t, err)
	assert.Equal(t, &catalog.Tag{ID: "tag-foil", Value: "FOIL"}, tag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepository_EnsureProductType(t *testing.T) {
	mock := newMock(t)
	repo := NewReferenceRepository(mock)

	mock.ExpectQuery("INSERT INTO product_types .+ ON CONFLICT").
		WithArgs(pgxmock.AnyArg(), "Carta").
		WillReturnRows(pgxmock.NewRows([]string{"id", "value"}).AddRow("type-1", "Carta"))

	pt, err := repo.EnsureProductType(context.Background(), "Carta")
	require.NoError(t, err)
	assert.Equal(t, "type-1", pt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepository_EnsureTag_Error(t *testing.T) {
	mock := newMock(t)
	repo := NewReferenceRepository(mock)

	mock.ExpectQuery("INSERT INTO tags").WillReturnError(errConnReset)

	_, err := repo.EnsureTag(context.Background(), "RARE")
	assert.ErrorIs(t, err, errConnReset)
}

func TestReferenceRepository_Defaults(t *testing.T) {
	mock := newMock(t)
	repo := NewReferenceRepository(mock)

	mock.ExpectQuery("SELECT id, name FROM stock_locations").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow("loc-1", "Bogotá"))
	mock.ExpectQuery("SELECT id, name FROM sales_channels").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow("sc-1", "Default Sales Channel"))

	loc, err := repo.DefaultStockLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "loc-1", loc.ID)

	sc, err := repo.DefaultSalesChannel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sc-1", sc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepository_Defaults_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewReferenceRepository(mock)

	mock.ExpectQuery("FROM stock_locations").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM sales_channels").WillReturnError(pgx.ErrNoRows)

	_, err := repo.DefaultStockLocation(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.DefaultSalesChannel(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── PriceSetRepository ─────────────────────────────────────────────────────

func TestPriceSetRepository_CreatePriceSets(t *testing.T) {
	mock := newMock(t)
	repo := NewPriceSetRepository(mock)
	sets := []catalog.PriceSet{
		{VariantID: "var-1", Prices: []catalog.Price{{Amount: 1_400_000, CurrencyCode: "cop"}}},
		{ID: "ps-2", VariantID: "var-2", Prices: []catalog.Price{{Amount: 0, CurrencyCode: "cop"}}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO price_sets").WithArgs(pgxmock.AnyArg(), "var-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO prices").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), int64(1_400_000), "cop").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO price_sets").WithArgs("ps-2", "var-2").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO prices").WithArgs(pgxmock.AnyArg(), "ps-2", int64(0), "cop").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreatePriceSets(context.Background(), sets))
	assert.NotEmpty(t, sets[0].ID)
	assert.NotEmpty(t, sets[0].Prices[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceSetRepository_CreatePriceSets_Empty(t *testing.T) {
	mock := newMock(t)
	require.NoError(t, NewPriceSetRepository(mock).CreatePriceSets(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceSetRepository_CreatePriceSets_DuplicateVariant(t *testing.T) {
	mock := newMock(t)
	repo := NewPriceSetRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO price_sets").WillReturnError(uniqueErr)
	mock.ExpectRollback()

	err := repo.CreatePriceSets(context.Background(), []catalog.PriceSet{{VariantID: "var-1"}})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── InventoryRepository ────────────────────────────────────────────────────

func TestInventoryRepository_CreateInventoryLevels(t *testing.T) {
	mock := newMock(t)
	repo := NewInventoryRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inventory_levels").WithArgs(pgxmock.AnyArg(), "var-1", "loc-1", 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	levels := []catalog.InventoryLevel{{VariantID: "var-1", LocationID: "loc-1"}}
	require.NoError(t, repo.CreateInventoryLevels(context.Background(), levels))
	assert.NotEmpty(t, levels[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_CreateInventoryLevels_ErrorRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewInventoryRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inventory_levels").WillReturnError(errConnReset)
	mock.ExpectRollback()

	err := repo.CreateInventoryLevels(context.Background(), []catalog.InventoryLevel{{VariantID: "var-1", LocationID: "loc-1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errConnReset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── TxRunner ───────────────────────────────────────────────────────────────

func bareProduct() *catalog.Product {
	p := sampleProduct()
	p.TagIDs = nil
	p.SalesChannelIDs = nil
	p.Options = nil
	return p
}

func writeStockedProduct(p *catalog.Product) func(context.Context, catalog.ProductWriters) error {
	return func(ctx context.Context, w catalog.ProductWriters) error {
		if err := w.Products.CreateProduct(ctx, p); err != nil {
			return err
		}
		variantID := p.Variants[0].ID
		if err := w.PriceSets.CreatePriceSets(ctx, []catalog.PriceSet{{
			VariantID: variantID,
			Prices:    []catalog.Price{{Amount: 1_400_000, CurrencyCode: "cop"}},
		}}); err != nil {
			return err
		}
		return w.Inventory.CreateInventoryLevels(ctx, []catalog.InventoryLevel{{VariantID: variantID, LocationID: "loc-1"}})
	}
}

func TestTxRunner_CommitsAllWrites(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO product_variants").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO price_sets").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO prices").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inventory_levels").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectCommit()

	require.NoError(t, NewTxRunner(mock).InTx(context.Background(), writeStockedProduct(bareProduct())))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_PriceSetFailureRollsBackProduct(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO product_variants").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO price_sets").WillReturnError(errConnReset)
	mock.ExpectRollback()
	mock.ExpectRollback()

	err := NewTxRunner(mock).InTx(context.Background(), writeStockedProduct(bareProduct()))
	require.Error(t, err)
	assert.ErrorIs(t, err, errConnReset)
	assert.NoError(t, mock.ExpectationsWereMet())
}
