package cache

import (
	"context"
	"errors"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

// BundleCache keeps raw bundle listings keyed by canonical query.
type BundleCache interface {
	Get(ctx context.Context, key string) ([]models.RawBundle, error)
	Set(ctx context.Context, key string, bundles []models.RawBundle) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")
