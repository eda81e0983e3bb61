package service

import (
	"context"
	"strings"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
	"github.com/Cheertaboi/esim-catalog-service/internal/models"
	"github.com/Cheertaboi/esim-catalog-service/pkg/logger"
	"github.com/Cheertaboi/esim-catalog-service/pkg/metrics"
)

type OrderSource interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	GetQRCode(ctx context.Context, esimID string) (*models.QRPayload, error)
}

// How the QR lookup key was found.
const (
	ResolvedByEsimID     = "esimId"
	ResolvedByOrder      = "order"
	ResolvedByOrderID    = "orderId"
	ResolvedByMatchingID = "matchingId"
)

// EsimResolver finds the eSIM UUID for whatever identifiers a customer
// has and fetches its QR code.
type EsimResolver struct {
	source  OrderSource
	log     logger.Logger
	metrics *metrics.Metrics
}

func NewEsimResolver(source OrderSource, log logger.Logger, m *metrics.Metrics) *EsimResolver {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &EsimResolver{source: source, log: log.With("component", "esim"), metrics: m}
}

// Resolve runs the lookup chain: esimId, then the order record, then the
// orderId itself if it looks like a UUID, then matchingId. Once a key is
// found it is used as is.
func (r *EsimResolver) Resolve(ctx context.Context, ref models.EsimOrderReference) (*models.QRResult, error) {
	key, by, ref := r.resolveKey(ctx, ref)
	if key == "" {
		r.metrics.QRResolutions.WithLabelValues("resolve", "unresolved").Inc()
		return nil, apperror.New(apperror.TypeUnresolvedIdentifier,
			"could not determine the eSIM UUID for this order; please enter the eSIM UUID manually").
			WithContext("orderId", ref.OrderID)
	}
	r.metrics.QRResolutions.WithLabelValues("resolve", by).Inc()

	payload, err := r.source.GetQRCode(ctx, key)
	if err != nil {
		r.metrics.QRResolutions.WithLabelValues("qrcode", "error").Inc()
		r.log.Error("qr code fetch failed", "esimId", key, "resolvedBy", by, "error", err)
		return nil, err
	}

	img, err := DecodeQRPayload(payload.Encoded())
	if err != nil {
		r.metrics.QRResolutions.WithLabelValues("decode", "error").Inc()
		r.log.Error("qr payload could not be processed", "esimId", key, "error", err)
		return nil, err
	}
	r.metrics.QRResolutions.WithLabelValues("decode", "ok").Inc()

	ref.EsimID = key
	return &models.QRResult{
		QRImageDataURI: img.DataURI(),
		ContentType:    img.ContentType,
		Packaged:       img.Packaged,
		Reference:      ref,
		ResolvedBy:     by,
		CanonicalQuery: ref.Query(),
	}, nil
}

func (r *EsimResolver) resolveKey(ctx context.Context, ref models.EsimOrderReference) (string, string, models.EsimOrderReference) {
	ref = trimRef(ref)
	if ref.Empty() {
		return "", "", ref
	}
	if ref.EsimID != "" {
		return ref.EsimID, ResolvedByEsimID, ref
	}

	if ref.OrderID != "" {
		order, err := r.source.GetOrder(ctx, ref.OrderID)
		switch {
		case err != nil:
			r.log.Warn("order lookup failed", "orderId", ref.OrderID, "error", err)
			r.metrics.QRResolutions.WithLabelValues("order", "error").Inc()
		default:
			if ref.ICCID == "" {
				ref.ICCID = order.ICCID
			}
			if ref.MatchingID == "" {
				ref.MatchingID = order.MatchingID
			}
			if id := firstNonEmpty(order.EsimID, order.ID); id != "" {
				r.metrics.QRResolutions.WithLabelValues("order", "ok").Inc()
				return id, ResolvedByOrder, ref
			}
			r.log.Warn("order has no eSIM id", "orderId", ref.OrderID)
			r.metrics.QRResolutions.WithLabelValues("order", "empty").Inc()
		}

		if LooksLikeUUID(ref.OrderID) {
			return ref.OrderID, ResolvedByOrderID, ref
		}
	}

	if ref.MatchingID != "" {
		r.log.Info("falling back to matching id", "matchingId", ref.MatchingID)
		return ref.MatchingID, ResolvedByMatchingID, ref
	}
	return "", "", ref
}

// LooksLikeUUID is the loose check used to accept an order id as an eSIM
// UUID: it has hyphens and is longer than 30 characters.
func LooksLikeUUID(s string) bool {
	return strings.Contains(s, "-") && len(s) > 30
}

func trimRef(ref models.EsimOrderReference) models.EsimOrderReference {
	return models.EsimOrderReference{
		OrderID:    strings.TrimSpace(ref.OrderID),
		EsimID:     strings.TrimSpace(ref.EsimID),
		MatchingID: strings.TrimSpace(ref.MatchingID),
		ICCID:      strings.TrimSpace(ref.ICCID),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
