package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
	"github.com/Cheertaboi/esim-catalog-service/internal/catalog"
	"github.com/Cheertaboi/esim-catalog-service/internal/models"
	"github.com/Cheertaboi/esim-catalog-service/internal/service"
)

type CatalogService interface {
	ListBundles(ctx context.Context, f service.BundleFilter) (service.Result[models.NormalizedBundle], error)
	GetBundle(ctx context.Context, bundleID string) (*models.NormalizedBundle, error)
	ListCountries(ctx context.Context, f service.CountryFilter) (service.Result[models.CountryAggregate], error)
	GetCountry(ctx context.Context, iso string) (*models.CountryAggregate, bool, error)
	ListRegions(ctx context.Context, f service.RegionFilter) (service.Result[models.RegionAggregate], error)
	Refresh(ctx context.Context) int
}

type CatalogHandler struct {
	service CatalogService
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

type CountryResponse struct {
	*models.CountryAggregate
	Stale bool `json:"stale"`
}

type RefreshResponse struct {
	Invalidated int `json:"invalidated"`
}

func bundleType(r *http.Request) (models.BundleType, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" {
		return "", nil
	}
	t := models.ParseBundleType(raw)
	if t == "" {
		return "", apperror.Newf(apperror.TypeInput, "unknown bundle type %q; use local, regional or global", raw)
	}
	return t, nil
}

func sortOrder(r *http.Request) (string, error) {
	switch s := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("sort"))); s {
	case "", catalog.SortByName:
		return catalog.SortByName, nil
	case catalog.SortByPrice:
		return s, nil
	default:
		return "", apperror.Newf(apperror.TypeInput, "unknown sort %q; use name or price", s)
	}
}

// ListBundles handles GET /api/v1/bundles
func (h *CatalogHandler) ListBundles(w http.ResponseWriter, r *http.Request) {
	t, err := bundleType(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, size, err := paging(r)
	if err != nil {
		writeError(w, err)
		return
	}
	serverSide, _ := strconv.ParseBool(r.URL.Query().Get("serverFilter"))

	res, err := h.service.ListBundles(r.Context(), service.BundleFilter{
		Type:       t,
		Query:      r.URL.Query().Get("q"),
		ServerSide: serverSide,
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetBundle handles GET /api/v1/bundles/{bundleId}
func (h *CatalogHandler) GetBundle(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBundle(r.Context(), chi.URLParam(r, "bundleId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ListCountries handles GET /api/v1/countries
func (h *CatalogHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	t, err := bundleType(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sortBy, err := sortOrder(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, size, err := paging(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.service.ListCountries(r.Context(), service.CountryFilter{
		Type:     t,
		Query:    r.URL.Query().Get("q"),
		Sort:     sortBy,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetCountry handles GET /api/v1/countries/{iso}
func (h *CatalogHandler) GetCountry(w http.ResponseWriter, r *http.Request) {
	agg, stale, err := h.service.GetCountry(r.Context(), chi.URLParam(r, "iso"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountryResponse{CountryAggregate: agg, Stale: stale})
}

// ListRegions handles GET /api/v1/regions
func (h *CatalogHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	sortBy, err := sortOrder(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, size, err := paging(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.service.ListRegions(r.Context(), service.RegionFilter{
		Region:   r.URL.Query().Get("region"),
		Query:    r.URL.Query().Get("q"),
		Sort:     sortBy,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Refresh handles POST /api/v1/catalog/refresh
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RefreshResponse{Invalidated: h.service.Refresh(r.Context())})
}
