package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Country is one covered country as delivered by the backend.
type Country struct {
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
	ISO    string `json:"iso"`
}

// DataAmount holds the backend's dataAmount field verbatim. The backend sends
// megabytes as a number, but older plans carry free text ("5GB", "Unlimited").
type DataAmount string

func (d *DataAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	*d = DataAmount(strings.Trim(string(b), `"`))
	return nil
}

// RawBundle is a plan exactly as the backend lists it.
type RawBundle struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Countries      []Country       `json:"countries"`
	DataAmount     DataAmount      `json:"dataAmount"`
	Duration       int             `json:"duration"`
	Unlimited      bool            `json:"unlimited"`
	RoamingEnabled bool            `json:"roamingEnabled"`
	Price          decimal.Decimal `json:"price"`
	Group          string          `json:"group,omitempty"`
	ImageURL       string          `json:"imageUrl,omitempty"`

	// DecodeErr is set on records of a listing page that could not be
	// decoded. Only Name is filled in then.
	DecodeErr error `json:"-"`
}

// BundleType is the storefront classification of a plan.
type BundleType string

const (
	BundleTypeLocal    BundleType = "local"
	BundleTypeRegional BundleType = "regional"
	BundleTypeGlobal   BundleType = "global"
)

// ParseBundleType returns "" for anything that is not a known type.
func ParseBundleType(s string) BundleType {
	switch BundleType(strings.ToLower(strings.TrimSpace(s))) {
	case BundleTypeLocal:
		return BundleTypeLocal
	case BundleTypeRegional:
		return BundleTypeRegional
	case BundleTypeGlobal:
		return BundleTypeGlobal
	}
	return ""
}

// NormalizedBundle is the canonical read model built from a RawBundle.
// It is created once per fetch and never mutated afterwards.
type NormalizedBundle struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Countries          []Country           `json:"countries"`
	DataMB             int64               `json:"dataMb"`
	DataDisplay        string              `json:"dataDisplay"`
	DurationDays       int                 `json:"durationDays"`
	ValidityDisplay    string              `json:"validityDisplay"`
	Unlimited          bool                `json:"unlimited"`
	RoamingEnabled     bool                `json:"roamingEnabled"`
	Price              decimal.Decimal     `json:"price"`
	PricePerGB         decimal.NullDecimal `json:"pricePerGb"`
	PrimaryCountryISO  string              `json:"primaryCountryIso,omitempty"`
	PrimaryCountryName string              `json:"primaryCountryName,omitempty"`
	CountryISOList     []string            `json:"countryIsoList"`
	Group              string              `json:"group,omitempty"`
	ImageURL           string              `json:"imageUrl,omitempty"`
	Type               BundleType          `json:"type"`
}

// SearchFields implements catalog.Searchable.
func (b NormalizedBundle) SearchFields() []string {
	fields := make([]string, 0, 2+2*len(b.Countries))
	fields = append(fields, b.Name, b.PrimaryCountryName)
	for _, c := range b.Countries {
		fields = append(fields, c.ISO, c.Region)
	}
	return fields
}

// BundlePage is one page of the backend's bundle listing.
type BundlePage struct {
	Bundles    []RawBundle `json:"bundles"`
	Page       int         `json:"page,omitempty"`
	PageSize   int         `json:"pageSize,omitempty"`
	TotalPages int         `json:"totalPages,omitempty"`
	Total      int         `json:"total,omitempty"`
}

// UnmarshalJSON decodes each listed bundle on its own so one malformed
// record does not discard the rest of the page.
func (p *BundlePage) UnmarshalJSON(b []byte) error {
	type plain BundlePage
	var wire struct {
		plain
		Bundles []json.RawMessage `json:"bundles"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*p = BundlePage(wire.plain)
	p.Bundles = make([]RawBundle, 0, len(wire.Bundles))
	for _, rec := range wire.Bundles {
		var rb RawBundle
		if err := json.Unmarshal(rec, &rb); err != nil {
			var named struct {
				Name string `json:"name"`
			}
			_ = json.Unmarshal(rec, &named)
			rb = RawBundle{Name: named.Name, DecodeErr: err}
		}
		p.Bundles = append(p.Bundles, rb)
	}
	return nil
}
