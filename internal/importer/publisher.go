package importer

import (
	"context"
	"errors"

	"github.com/paramirez/deckzter-seed/internal/card"
	"github.com/paramirez/deckzter-seed/internal/catalog"
)

// Publishers announces a created product to every publisher in order.
// Every publisher is attempted; their failures are joined.
type Publishers []Publisher

// PublishCardImported implements Publisher.
func (ps Publishers) PublishCardImported(ctx context.Context, product *catalog.Product, variant card.Variant) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishCardImported(ctx, product, variant); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
