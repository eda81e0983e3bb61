package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
	"github.com/Cheertaboi/esim-catalog-service/internal/models"
	"github.com/Cheertaboi/esim-catalog-service/pkg/logger"
	"github.com/Cheertaboi/esim-catalog-service/pkg/metrics"
)

const maxResponseBytes = 32 << 20

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	PageSize   int
	MaxPages   int
	Workers    int
	HTTPClient *http.Client
	Logger     logger.Logger
	Metrics    *metrics.Metrics
}

// Client talks to the marketplace backend's REST API.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
	pageSize int
	maxPages int
	workers  int
	log      logger.Logger
	metrics  *metrics.Metrics
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	c := &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		http:     httpClient,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		workers:  opts.Workers,
		log:      opts.Logger.With("component", "upstream"),
		metrics:  opts.Metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a 404 is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || apperror.IsType(err, apperror.TypeNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			c.metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return c
}

// BundleQuery selects a bundle listing.
type BundleQuery struct {
	Type       models.BundleType
	CountryISO string
	Page       int
	Size       int
}

// Key is the canonical cache key for the query, ignoring paging.
func (q BundleQuery) Key() string {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.CountryISO != "" {
		v.Set("countryIso", strings.ToUpper(q.CountryISO))
	}
	return "bundles?" + v.Encode()
}

func (q BundleQuery) values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.CountryISO != "" {
		v.Set("countryIso", strings.ToUpper(q.CountryISO))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	return v
}

// ListBundles fetches one page of GET /bundles.
func (c *Client) ListBundles(ctx context.Context, q BundleQuery) (*models.BundlePage, error) {
	var page models.BundlePage
	if err := c.get(ctx, "list_bundles", "/bundles", q.values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

type bundleEnvelope struct {
	Wrapped *models.RawBundle `json:"bundle"`
	models.RawBundle
}

// GetBundle fetches GET /bundles/{bundleId}.
func (c *Client) GetBundle(ctx context.Context, bundleID string) (*models.RawBundle, error) {
	var env bundleEnvelope
	if err := c.get(ctx, "get_bundle", "/bundles/"+url.PathEscape(bundleID), nil, &env); err != nil {
		return nil, err
	}
	if env.Wrapped != nil {
		return env.Wrapped, nil
	}
	if env.RawBundle.Name == "" {
		return nil, apperror.Newf(apperror.TypeNotFound, "bundle %s not found", bundleID)
	}
	return &env.RawBundle, nil
}

type orderEnvelope struct {
	Wrapped *models.Order `json:"order"`
	models.Order
}

// GetOrder fetches GET /orders/{orderId}.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var env orderEnvelope
	if err := c.get(ctx, "get_order", "/orders/"+url.PathEscape(orderID), nil, &env); err != nil {
		return nil, err
	}
	if env.Wrapped != nil {
		return env.Wrapped, nil
	}
	return &env.Order, nil
}

// GetQRCode fetches GET /esims/{esimId}/qrcode.
func (c *Client) GetQRCode(ctx context.Context, esimID string) (*models.QRPayload, error) {
	var payload models.QRPayload
	if err := c.get(ctx, "get_qrcode", "/esims/"+url.PathEscape(esimID)+"/qrcode", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, target)
	})
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, outcome(err)).Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return apperror.Wrap(apperror.TypeFetch, "backend temporarily unavailable", err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "decode_error").Inc()
		return apperror.Wrapf(apperror.TypeFetch, err, "decode %s response", endpoint)
	}
	c.metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperror.Wrap(apperror.TypeInternal, "build backend request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("backend request failed", "url", target, "error", err)
		return nil, apperror.Wrap(apperror.TypeFetch, "backend request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperror.Wrap(apperror.TypeFetch, "read backend response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.Newf(apperror.TypeNotFound, "%s not found", req.URL.Path)
	case resp.StatusCode >= 400:
		c.log.Error("backend returned error status", "url", target, "status", resp.StatusCode)
		return nil, apperror.Newf(apperror.TypeFetch, "backend returned %d", resp.StatusCode).
			WithContext("status", resp.StatusCode).
			WithContext("body", truncate(string(body), 256))
	}
	return body, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case apperror.IsType(err, apperror.TypeNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
