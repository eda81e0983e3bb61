package models

import "net/url"

// EsimOrderReference carries whichever identifiers the caller knows.
// Only a resolved eSIM UUID can be used to look up a QR code.
type EsimOrderReference struct {
	OrderID    string `json:"orderId,omitempty"`
	EsimID     string `json:"esimId,omitempty"`
	MatchingID string `json:"matchingId,omitempty"`
	ICCID      string `json:"iccid,omitempty"`
}

// Empty reports whether no lookup identifier is set.
func (r EsimOrderReference) Empty() bool {
	return r.EsimID == "" && r.OrderID == "" && r.MatchingID == ""
}

// Query encodes the canonical identifiers so a reload repeats the lookup.
func (r EsimOrderReference) Query() string {
	v := url.Values{}
	if r.EsimID != "" {
		v.Set("esimId", r.EsimID)
	}
	if r.OrderID != "" {
		v.Set("orderId", r.OrderID)
	}
	if r.ICCID != "" {
		v.Set("iccid", r.ICCID)
	}
	return v.Encode()
}

// Order is the subset of the backend order record the resolver needs.
type Order struct {
	ID         string `json:"id"`
	EsimID     string `json:"esimId"`
	ICCID      string `json:"iccid"`
	MatchingID string `json:"matchingId"`
	Status     string `json:"status"`
}

// QRPayload is the backend's QR response. Data is base64 or a data URI,
// possibly wrapping a ZIP archive.
type QRPayload struct {
	QRCode string `json:"qrCode"`
	Alt    string `json:"qr_code"`
	Data   string `json:"data"`
}

// Encoded returns the first non-empty payload field.
func (p QRPayload) Encoded() string {
	for _, s := range []string{p.QRCode, p.Alt, p.Data} {
		if s != "" {
			return s
		}
	}
	return ""
}

// QRResult is what the resolver hands back on success.
type QRResult struct {
	QRImageDataURI string             `json:"qrImageDataUri"`
	ContentType    string             `json:"contentType"`
	Packaged       bool               `json:"packaged"`
	Reference      EsimOrderReference `json:"reference"`
	ResolvedBy     string             `json:"resolvedBy"`
	CanonicalQuery string             `json:"canonicalQuery"`
}
