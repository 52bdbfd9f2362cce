package food

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/models"
)

// Resolver queries food sources in a fixed priority order.
type Resolver struct {
	sources []Source
	logger  *zap.Logger
}

// NewResolver returns a resolver trying sources in the given order. The
// first source is the primary provider.
func NewResolver(logger *zap.Logger, sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		logger:  orNop(logger),
	}
}

// ResolveByBarcode returns the first normalized match, or ErrNotFound when no
// source knows the barcode. Source failures are returned as-is.
func (r *Resolver) ResolveByBarcode(ctx context.Context, barcode string) (*models.Food, error) {
	for _, src := range r.sources {
		f, err := src.LookupBarcode(ctx, barcode)
		if errors.Is(err, ErrNotFound) {
			r.logger.Debug("Barcode not found in source",
				zap.String("source", string(src.Name())),
				zap.String("barcode", barcode))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup barcode in %s: %w", src.Name(), err)
		}
		r.logger.Info("Barcode resolved",
			zap.String("source", string(src.Name())),
			zap.String("barcode", barcode),
			zap.String("food_id", f.ID))
		return f, nil
	}
	return nil, ErrNotFound
}

// SearchByName queries the primary source by free-text name.
func (r *Resolver) SearchByName(ctx context.Context, name string) (*models.Food, error) {
	if len(r.sources) == 0 {
		return nil, ErrNotFound
	}
	searcher, ok := r.sources[0].(NameSearcher)
	if !ok {
		return nil, fmt.Errorf("primary source %s does not support name search", r.sources[0].Name())
	}
	f, err := searcher.SearchByName(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("search %s: %w", r.sources[0].Name(), err)
	}
	return f, err
}
