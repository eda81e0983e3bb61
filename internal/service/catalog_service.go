package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
	"github.com/Cheertaboi/esim-catalog-service/internal/cache"
	"github.com/Cheertaboi/esim-catalog-service/internal/catalog"
	"github.com/Cheertaboi/esim-catalog-service/internal/models"
	"github.com/Cheertaboi/esim-catalog-service/internal/repository"
	"github.com/Cheertaboi/esim-catalog-service/internal/upstream"
	"github.com/Cheertaboi/esim-catalog-service/pkg/logger"
	"github.com/Cheertaboi/esim-catalog-service/pkg/metrics"
)

// Dependencies required by the service (interfaces to allow mocking)
type BundleSource interface {
	FetchAll(ctx context.Context, q upstream.BundleQuery, fn upstream.PageFunc) (int, error)
	GetBundle(ctx context.Context, bundleID string) (*models.RawBundle, error)
}

type SnapshotStore interface {
	Save(ctx context.Context, key string, bundles []models.RawBundle, fetchedAt time.Time) error
	Load(ctx context.Context, key string) (*repository.Snapshot, error)
}

// Result is one page of a listing plus how fresh it is.
type Result[T any] struct {
	catalog.Page[T]
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetchedAt"`
	Message   string    `json:"message,omitempty"`
}

type BundleFilter struct {
	Type  models.BundleType
	Query string
	// ServerSide sends the type filter to the backend instead of applying
	// the local classifier.
	ServerSide bool
	Page       int
	PageSize   int
}

type CountryFilter struct {
	Type     models.BundleType
	Query    string
	Sort     string
	Page     int
	PageSize int
}

type RegionFilter struct {
	Region   string
	Query    string
	Sort     string
	Page     int
	PageSize int
}

// listing is everything derived from one fetched query key. It is built
// once and only read afterwards.
type listing struct {
	bundles   []models.NormalizedBundle
	countries []models.CountryAggregate
	regions   []models.RegionAggregate
	fetchedAt time.Time
	stale     bool
}

type CatalogOptions struct {
	Source    BundleSource
	Cache     cache.BundleCache
	Snapshots SnapshotStore
	Regions   *catalog.RegionMatcher
	TTL       time.Duration
	PageSize  int
	Logger    logger.Logger
	Metrics   *metrics.Metrics
}

// CatalogService answers storefront listing queries from the backend's flat
// bundle list.
type CatalogService struct {
	source    BundleSource
	cache     cache.BundleCache
	snapshots SnapshotStore
	regions   *catalog.RegionMatcher
	states    *cache.States[*listing]
	pageSize  int
	log       logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	detail singleflight.Group

	mu   sync.Mutex
	keys map[string]struct{}
}

func NewCatalogService(opts CatalogOptions) *CatalogService {
	if opts.PageSize <= 0 {
		opts.PageSize = catalog.DefaultPageSize
	}
	if opts.Regions == nil {
		opts.Regions = catalog.NewRegionMatcher(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &CatalogService{
		source:    opts.Source,
		cache:     opts.Cache,
		snapshots: opts.Snapshots,
		regions:   opts.Regions,
		states:    cache.NewStates[*listing](opts.TTL),
		pageSize:  opts.PageSize,
		log:       opts.Logger.With("component", "catalog"),
		metrics:   opts.Metrics,
		now:       time.Now,
		keys:      make(map[string]struct{}),
	}
}

// ListBundles returns one page of normalized bundles.
func (s *CatalogService) ListBundles(ctx context.Context, f BundleFilter) (Result[models.NormalizedBundle], error) {
	q := upstream.BundleQuery{}
	if f.ServerSide {
		q.Type = f.Type
	}
	l, err := s.listing(ctx, q)
	if err != nil {
		return Result[models.NormalizedBundle]{}, err
	}

	bundles := l.bundles
	if !f.ServerSide {
		bundles = catalog.FilterByType(bundles, f.Type)
	}
	bundles = catalog.Search(bundles, f.Query)
	return result(l, catalog.Paginate(bundles, f.Page, s.size(f.PageSize)), "No bundles found"), nil
}

// GetBundle returns one normalized bundle by id.
func (s *CatalogService) GetBundle(ctx context.Context, bundleID string) (*models.NormalizedBundle, error) {
	if bundleID == "" {
		return nil, apperror.New(apperror.TypeInput, "bundle id is required")
	}
	// concurrent requests for one bundle share a backend call, which must
	// outlive any single caller's cancellation
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.detail.Do(bundleID, func() (interface{}, error) {
		return s.source.GetBundle(shared, bundleID)
	})
	if err != nil {
		return nil, err
	}
	nb, err := catalog.Normalize(*v.(*models.RawBundle))
	if err != nil {
		s.skip(bundleID, "transform", err)
		return nil, err
	}
	return &nb, nil
}

// ListCountries returns one page of country aggregates.
func (s *CatalogService) ListCountries(ctx context.Context, f CountryFilter) (Result[models.CountryAggregate], error) {
	l, err := s.listing(ctx, upstream.BundleQuery{})
	if err != nil {
		return Result[models.CountryAggregate]{}, err
	}

	var countries []models.CountryAggregate
	if f.Type == "" {
		countries = append(countries, l.countries...)
	} else {
		for _, c := range catalog.AggregateByCountry(catalog.FilterByType(l.bundles, f.Type)) {
			countries = append(countries, c)
		}
	}
	countries = catalog.SortCountries(catalog.Search(countries, f.Query), f.Sort)
	return result(l, catalog.Paginate(countries, f.Page, s.size(f.PageSize)), "No countries found"), nil
}

// GetCountry returns the aggregate for one country with every bundle that
// covers it.
func (s *CatalogService) GetCountry(ctx context.Context, iso string) (*models.CountryAggregate, bool, error) {
	iso = catalog.NormalizeISO(iso)
	if len(iso) != 2 {
		return nil, false, apperror.Newf(apperror.TypeInput, "invalid country code %q", iso)
	}
	l, err := s.listing(ctx, upstream.BundleQuery{CountryISO: iso})
	if err != nil {
		return nil, false, err
	}
	agg, ok := catalog.CountryDetail(iso, l.bundles)
	if !ok {
		return nil, l.stale, apperror.Newf(apperror.TypeNotFound, "no bundles found for %s", iso)
	}
	return &agg, l.stale, nil
}

// ListRegions returns one page of region aggregates, optionally narrowed to
// one storefront region label.
func (s *CatalogService) ListRegions(ctx context.Context, f RegionFilter) (Result[models.RegionAggregate], error) {
	l, err := s.listing(ctx, upstream.BundleQuery{})
	if err != nil {
		return Result[models.RegionAggregate]{}, err
	}

	var regions []models.RegionAggregate
	if f.Region == "" {
		regions = append(regions, l.regions...)
	} else {
		for _, r := range catalog.AggregateByRegion(l.bundles, s.regions, f.Region) {
			regions = append(regions, r)
		}
	}
	regions = catalog.SortRegions(catalog.Search(regions, f.Query), f.Sort)
	return result(l, catalog.Paginate(regions, f.Page, s.size(f.PageSize)), "No regions found"), nil
}

// Refresh forgets every loaded listing so the next request refetches.
func (s *CatalogService) Refresh(ctx context.Context) int {
	s.mu.Lock()
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Strings(keys)

	if s.cache != nil {
		for _, k := range keys {
			if err := s.cache.Delete(ctx, k); err != nil {
				s.log.Warn("cache delete failed", "key", k, "error", err)
			}
		}
	}
	n := s.states.InvalidateAll()
	s.log.Info("catalog refreshed", "invalidated", n)
	return n
}

// State reports the request state of a listing key.
func (s *CatalogService) State(q upstream.BundleQuery) cache.State {
	return s.states.State(q.Key())
}

func (s *CatalogService) listing(ctx context.Context, q upstream.BundleQuery) (*listing, error) {
	key := q.Key()
	l, err := s.states.Load(ctx, key, func(ctx context.Context) (*listing, error) {
		return s.load(ctx, q)
	})
	if err == nil {
		return l, nil
	}
	if !apperror.IsType(err, apperror.TypeFetch) {
		return nil, err
	}

	if stale := s.fallback(ctx, key); stale != nil {
		s.log.Warn("serving stale snapshot", "key", key, "fetchedAt", stale.fetchedAt, "error", err)
		s.metrics.SnapshotServed.Inc()
		return stale, nil
	}
	s.log.Error("bundle fetch failed", "key", key, "error", err)
	return nil, err
}

func (s *CatalogService) load(ctx context.Context, q upstream.BundleQuery) (*listing, error) {
	key := q.Key()
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()

	if s.cache != nil {
		raws, err := s.cache.Get(ctx, key)
		if err == nil {
			s.log.Debug("bundle cache hit", "key", key, "bundles", len(raws))
			return s.build(raws, s.now(), false), nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("bundle cache read failed", "key", key, "error", err)
		}
	}

	b := s.newBuilder()
	var raws []models.RawBundle
	pages, err := s.source.FetchAll(ctx, q, func(_ int, page []models.RawBundle) {
		for _, raw := range page {
			if raw.DecodeErr == nil {
				raws = append(raws, raw)
			}
		}
		b.add(page)
	})
	if err != nil {
		return nil, err
	}
	l := b.finish(s.now(), false)
	s.log.Info("bundles fetched", "key", key, "pages", pages, "raw", len(raws), "bundles", len(l.bundles))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, raws); err != nil {
			s.log.Warn("bundle cache write failed", "key", key, "error", err)
		}
	}
	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, key, raws, l.fetchedAt); err != nil {
			s.log.Warn("snapshot save failed", "key", key, "error", err)
		}
	}
	return l, nil
}

func (s *CatalogService) fallback(ctx context.Context, key string) *listing {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			s.log.Warn("snapshot load failed", "key", key, "error", err)
		}
		return nil
	}
	return s.build(snap.Bundles, snap.FetchedAt, true)
}

func (s *CatalogService) build(raws []models.RawBundle, fetchedAt time.Time, stale bool) *listing {
	b := s.newBuilder()
	b.add(raws)
	return b.finish(fetchedAt, stale)
}

// builder folds pages into the normalized list and the unfiltered
// aggregates as they arrive.
type builder struct {
	normalizer *catalog.Normalizer
	countries  *catalog.CountryIndex
	regions    *catalog.RegionIndex
	onDrop     func(name string)
}

func (s *CatalogService) newBuilder() *builder {
	return &builder{
		normalizer: catalog.NewNormalizer(func(name string, err error) {
			s.skip(name, "transform", err)
		}),
		countries: catalog.NewCountryIndex(),
		regions:   catalog.NewRegionIndex(s.regions, ""),
		onDrop: func(name string) {
			s.log.Debug("bundle has no country", "bundle", name)
			s.metrics.BundlesSkipped.WithLabelValues("no_country").Inc()
		},
	}
}

func (b *builder) add(raws []models.RawBundle) {
	for _, nb := range b.normalizer.Add(raws) {
		if !b.countries.Add(nb) {
			b.onDrop(nb.ID)
		}
		b.regions.Add(nb)
	}
}

func (b *builder) finish(fetchedAt time.Time, stale bool) *listing {
	return &listing{
		bundles:   b.normalizer.Bundles(),
		countries: b.countries.Countries(),
		regions:   b.regions.Regions(),
		fetchedAt: fetchedAt,
		stale:     stale,
	}
}

func (s *CatalogService) skip(name, reason string, err error) {
	s.log.Warn("bundle skipped", "bundle", name, "reason", reason, "error", err)
	s.metrics.BundlesSkipped.WithLabelValues(reason).Inc()
}

func (s *CatalogService) size(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.pageSize
}

func result[T any](l *listing, page catalog.Page[T], empty string) Result[T] {
	r := Result[T]{Page: page, Stale: l.stale, FetchedAt: l.fetchedAt}
	if page.TotalItems == 0 {
		r.Message = empty
	}
	return r
}
