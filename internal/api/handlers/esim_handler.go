package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

const qrPath = "/api/v1/esim/qr"

type EsimResolver interface {
	Resolve(ctx context.Context, ref models.EsimOrderReference) (*models.QRResult, error)
}

type EsimHandler struct {
	resolver EsimResolver
}

func NewEsimHandler(resolver EsimResolver) *EsimHandler {
	return &EsimHandler{resolver: resolver}
}

func referenceFromQuery(r *http.Request) models.EsimOrderReference {
	q := r.URL.Query()
	return models.EsimOrderReference{
		EsimID:     q.Get("esimId"),
		OrderID:    q.Get("orderId"),
		MatchingID: q.Get("matchingId"),
		ICCID:      q.Get("iccid"),
	}
}

// GetQRCode handles GET /api/v1/esim/qr
func (h *EsimHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, referenceFromQuery(r))
}

// RefreshQRCode handles POST /api/v1/esim/qr/refresh. The identifiers come
// from the JSON body, or the query string when the body is empty.
func (h *EsimHandler) RefreshQRCode(w http.ResponseWriter, r *http.Request) {
	var ref models.EsimOrderReference
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&ref); err != nil {
		if !errors.Is(err, io.EOF) {
			writeError(w, apperror.Wrap(apperror.TypeInput, "invalid request body", err))
			return
		}
		ref = referenceFromQuery(r)
	}
	h.resolve(w, r, ref)
}

func (h *EsimHandler) resolve(w http.ResponseWriter, r *http.Request, ref models.EsimOrderReference) {
	res, err := h.resolver.Resolve(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Location", qrPath+"?"+res.CanonicalQuery)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, res)
}
