package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

// UnlimitedSentinel is the dataAmount the backend uses for unlimited plans.
const UnlimitedSentinel = -1

var (
	thousand      = decimal.NewFromInt(1000)
	million       = decimal.NewFromInt(1000000)
	amountPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(tb|gb|mb)?$`)
)

// ParseDataAmount converts the backend's data amount into megabytes.
// Numbers are megabytes; strings may carry a unit ("5GB", "500 MB") or say
// "unlimited". Unlimited amounts return UnlimitedSentinel.
func ParseDataAmount(raw models.DataAmount) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(string(raw)))
	if s == "" {
		return 0, fmt.Errorf("missing data amount")
	}
	if s == "unlimited" {
		return UnlimitedSentinel, nil
	}

	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unparseable data amount %q", string(raw))
	}
	value, err := decimal.NewFromString(m[1])
	if err != nil {
		return 0, fmt.Errorf("unparseable data amount %q: %w", string(raw), err)
	}

	switch m[2] {
	case "tb":
		value = value.Mul(million)
	case "gb":
		value = value.Mul(thousand)
	}

	mb := value.Round(0).IntPart()
	if mb == UnlimitedSentinel {
		return UnlimitedSentinel, nil
	}
	if mb < 0 {
		return 0, fmt.Errorf("negative data amount %q", string(raw))
	}
	return mb, nil
}

// FormatData renders a data allowance for display: "Unlimited", "5GB",
// "1.5GB" or "500MB".
func FormatData(mb int64, unlimited bool) string {
	if unlimited || mb == UnlimitedSentinel {
		return "Unlimited"
	}
	if mb >= 1000 {
		gb := decimal.NewFromInt(mb).Div(thousand)
		if gb.IsInteger() {
			return gb.String() + "GB"
		}
		return gb.StringFixed(1) + "GB"
	}
	return fmt.Sprintf("%dMB", mb)
}

// FormatValidity renders a duration in days.
func FormatValidity(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// PricePerGB is price / (mb / 1000). It is undefined for unlimited plans and
// for plans without a positive allowance.
func PricePerGB(price decimal.Decimal, mb int64, unlimited bool) decimal.NullDecimal {
	if unlimited || mb <= 0 {
		return decimal.NullDecimal{}
	}
	gb := decimal.NewFromInt(mb).Div(thousand)
	return decimal.NewNullDecimal(price.Div(gb))
}

// Normalize converts one raw bundle into its canonical form. Records that
// cannot be interpreted fail with a TRANSFORM_FAILURE error.
func Normalize(raw models.RawBundle) (models.NormalizedBundle, error) {
	name := strings.TrimSpace(raw.Name)
	if raw.DecodeErr != nil {
		return models.NormalizedBundle{}, apperror.Wrapf(apperror.TypeTransform, raw.DecodeErr, "bundle %q is malformed", name)
	}
	if name == "" {
		return models.NormalizedBundle{}, apperror.New(apperror.TypeTransform, "bundle has no name")
	}
	if raw.Price.IsNegative() {
		return models.NormalizedBundle{}, apperror.Newf(apperror.TypeTransform, "bundle %s has negative price", name)
	}
	if raw.Duration < 0 {
		return models.NormalizedBundle{}, apperror.Newf(apperror.TypeTransform, "bundle %s has negative duration", name)
	}

	mb, err := ParseDataAmount(raw.DataAmount)
	if err != nil {
		if raw.Unlimited {
			mb = UnlimitedSentinel
		} else {
			return models.NormalizedBundle{}, apperror.Wrapf(apperror.TypeTransform, err, "bundle %s", name)
		}
	}
	unlimited := raw.Unlimited || mb == UnlimitedSentinel

	countries := make([]models.Country, 0, len(raw.Countries))
	isoList := make([]string, 0, len(raw.Countries))
	for _, c := range raw.Countries {
		iso := NormalizeISO(c.ISO)
		cname := strings.TrimSpace(c.Name)
		if cname == "" {
			cname = CountryName(iso)
		}
		if iso == "" && cname == "" {
			continue
		}
		region := ResolveRegion(iso, cname, c.Region)
		if region == UnknownRegion {
			region = ""
		}
		countries = append(countries, models.Country{Name: cname, Region: region, ISO: iso})
		if iso != "" {
			isoList = append(isoList, iso)
		}
	}

	nb := models.NormalizedBundle{
		ID:              name,
		Name:            name,
		Description:     raw.Description,
		Countries:       countries,
		DataMB:          mb,
		DataDisplay:     FormatData(mb, unlimited),
		DurationDays:    raw.Duration,
		ValidityDisplay: FormatValidity(raw.Duration),
		Unlimited:       unlimited,
		RoamingEnabled:  raw.RoamingEnabled,
		Price:           raw.Price,
		PricePerGB:      PricePerGB(raw.Price, mb, unlimited),
		CountryISOList:  isoList,
		Group:           raw.Group,
		ImageURL:        raw.ImageURL,
		Type:            Classify(len(countries), raw.RoamingEnabled, name, raw.Group),
	}
	if len(countries) > 0 {
		nb.PrimaryCountryISO = countries[0].ISO
		nb.PrimaryCountryName = countries[0].Name
	}
	return nb, nil
}

// SkipFunc is told about every raw bundle that is dropped.
type SkipFunc func(name string, err error)

// Normalizer folds raw bundles into a de-duplicated normalized list. It is
// fed page by page; ids seen on an earlier page win.
type Normalizer struct {
	seen    map[string]struct{}
	bundles []models.NormalizedBundle
	onSkip  SkipFunc
}

func NewNormalizer(onSkip SkipFunc) *Normalizer {
	return &Normalizer{seen: make(map[string]struct{}), onSkip: onSkip}
}

// Add normalizes raws and returns the bundles accepted from this batch.
func (n *Normalizer) Add(raws []models.RawBundle) []models.NormalizedBundle {
	accepted := make([]models.NormalizedBundle, 0, len(raws))
	for _, raw := range raws {
		nb, err := Normalize(raw)
		if err != nil {
			n.skip(raw.Name, err)
			continue
		}
		if _, dup := n.seen[nb.ID]; dup {
			n.skip(nb.ID, apperror.Newf(apperror.TypeTransform, "duplicate bundle id %s", nb.ID))
			continue
		}
		n.seen[nb.ID] = struct{}{}
		accepted = append(accepted, nb)
	}
	n.bundles = append(n.bundles, accepted...)
	return accepted
}

// Bundles returns everything accepted so far.
func (n *Normalizer) Bundles() []models.NormalizedBundle {
	return n.bundles
}

func (n *Normalizer) skip(name string, err error) {
	if n.onSkip != nil {
		n.onSkip(name, err)
	}
}

// NormalizeAll is the one-shot form of Normalizer.
func NormalizeAll(raws []models.RawBundle, onSkip SkipFunc) []models.NormalizedBundle {
	n := NewNormalizer(onSkip)
	n.Add(raws)
	return n.Bundles()
}
