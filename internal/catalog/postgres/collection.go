package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/paramirez/deckzter-seed/internal/catalog"
	"github.com/paramirez/deckzter-seed/pkg/database"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
)

const (
	selectCollectionByTitleSQL = `
		SELECT id, title, handle, created_at
		FROM collections
		WHERE title = $1`

	insertCollectionSQL = `
		INSERT INTO collections (id, title, handle, created_at)
		VALUES ($1, $2, $3, $4)`
)

// CollectionRepository implements catalog.CollectionRepository.
type CollectionRepository struct {
	db database.DBTX
}

// NewCollectionRepository creates a PostgreSQL-backed collection repository.
func NewCollectionRepository(db database.DBTX) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// GetCollectionByTitle retrieves a collection by its title.
func (r *CollectionRepository) GetCollectionByTitle(ctx context.Context, title string) (_ *catalog.Collection, err error) {
	ctx, end := database.TraceQuery(ctx, "collections", "GetCollectionByTitle", selectCollectionByTitleSQL)
	defer func() { end(err) }()

	var c catalog.Collection
	err = r.db.QueryRow(ctx, selectCollectionByTitleSQL, title).Scan(&c.ID, &c.Title, &c.Handle, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("collection", title)
		}
		return nil, fmt.Errorf("scan collection: %w", err)
	}
	return &c, nil
}

// CreateCollection inserts a new collection.
func (r *CollectionRepository) CreateCollection(ctx context.Context, c *catalog.Collection) (err error) {
	ctx, end := database.TraceQuery(ctx, "collections", "CreateCollection", insertCollectionSQL)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, insertCollectionSQL, c.ID, c.Title, c.Handle, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("collection", "title", c.Title)
		}
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}
