package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

// SampleCountryLimit caps RegionAggregate.SampleCountries.
const SampleCountryLimit = 5

func foldMin(current decimal.NullDecimal, candidate decimal.NullDecimal) decimal.NullDecimal {
	if !candidate.Valid {
		return current
	}
	if !current.Valid || candidate.Decimal.LessThan(current.Decimal) {
		return candidate
	}
	return current
}

// sortBundles orders by price-per-GB (unpriced last), then id.
func sortBundles(bundles []models.NormalizedBundle) {
	sort.Slice(bundles, func(i, j int) bool {
		a, b := bundles[i].PricePerGB, bundles[j].PricePerGB
		if a.Valid != b.Valid {
			return a.Valid
		}
		if a.Valid && !a.Decimal.Equal(b.Decimal) {
			return a.Decimal.LessThan(b.Decimal)
		}
		return bundles[i].ID < bundles[j].ID
	})
}

type countryGroup struct {
	agg          models.CountryAggregate
	nameSource   string
	regionSource string
}

// CountryIndex incrementally groups bundles by their primary country.
// The result does not depend on the order bundles are added in.
type CountryIndex struct {
	groups map[string]*countryGroup
}

func NewCountryIndex() *CountryIndex {
	return &CountryIndex{groups: make(map[string]*countryGroup)}
}

// Add folds one bundle in. Bundles without a primary ISO are dropped and
// Add reports false.
func (x *CountryIndex) Add(b models.NormalizedBundle) bool {
	iso := NormalizeISO(b.PrimaryCountryISO)
	if iso == "" {
		return false
	}

	g, ok := x.groups[iso]
	if !ok {
		name := CountryName(iso)
		if name == "" {
			name = iso
		}
		g = &countryGroup{agg: models.CountryAggregate{
			CountryName: name,
			CountryISO:  iso,
			Flag:        Flag(iso),
			Region:      UnknownRegion,
		}}
		x.groups[iso] = g
	}
	if b.PrimaryCountryName != "" && (g.nameSource == "" || b.ID < g.nameSource) {
		g.agg.CountryName = b.PrimaryCountryName
		g.nameSource = b.ID
	}

	var embedded string
	if len(b.Countries) > 0 {
		embedded = b.Countries[0].Region
	}
	region := ResolveRegion(iso, b.PrimaryCountryName, embedded)
	if region != UnknownRegion && (g.agg.Region == UnknownRegion || b.ID < g.regionSource) {
		g.agg.Region = region
		g.regionSource = b.ID
	}

	g.agg.Bundles = append(g.agg.Bundles, b)
	g.agg.MinPricePerGB = foldMin(g.agg.MinPricePerGB, b.PricePerGB)
	return true
}

// Map returns the aggregates keyed by ISO code.
func (x *CountryIndex) Map() map[string]models.CountryAggregate {
	out := make(map[string]models.CountryAggregate, len(x.groups))
	for iso := range x.groups {
		out[iso] = x.aggregate(iso)
	}
	return out
}

// Countries returns the aggregates ordered by country name.
func (x *CountryIndex) Countries() []models.CountryAggregate {
	out := make([]models.CountryAggregate, 0, len(x.groups))
	for iso := range x.groups {
		out = append(out, x.aggregate(iso))
	}
	SortCountries(out, SortByName)
	return out
}

func (x *CountryIndex) aggregate(iso string) models.CountryAggregate {
	agg := x.groups[iso].agg
	agg.Bundles = append([]models.NormalizedBundle(nil), agg.Bundles...)
	sortBundles(agg.Bundles)
	agg.BundleCount = len(agg.Bundles)
	return agg
}

// AggregateByCountry groups bundles by primary country ISO.
func AggregateByCountry(bundles []models.NormalizedBundle) map[string]models.CountryAggregate {
	x := NewCountryIndex()
	for _, b := range bundles {
		x.Add(b)
	}
	return x.Map()
}

// CountryDetail aggregates every bundle that covers iso, including
// multi-country bundles attributed to another primary country. It reports
// false when no bundle covers iso.
func CountryDetail(iso string, bundles []models.NormalizedBundle) (models.CountryAggregate, bool) {
	iso = NormalizeISO(iso)
	agg := models.CountryAggregate{CountryISO: iso, Flag: Flag(iso), Region: UnknownRegion}
	var nameSource, regionSource string
	for _, b := range bundles {
		for _, c := range b.Countries {
			if c.ISO != iso {
				continue
			}
			if c.Name != "" && (nameSource == "" || b.ID < nameSource) {
				agg.CountryName = c.Name
				nameSource = b.ID
			}
			// same precedence as CountryIndex: any known region beats Unknown
			region := ResolveRegion(iso, c.Name, c.Region)
			if region != UnknownRegion && (agg.Region == UnknownRegion || b.ID < regionSource) {
				agg.Region = region
				regionSource = b.ID
			}
			agg.Bundles = append(agg.Bundles, b)
			agg.MinPricePerGB = foldMin(agg.MinPricePerGB, b.PricePerGB)
			break
		}
	}
	if len(agg.Bundles) == 0 {
		return models.CountryAggregate{}, false
	}
	if agg.CountryName == "" {
		agg.CountryName = CountryName(iso)
	}
	sortBundles(agg.Bundles)
	agg.BundleCount = len(agg.Bundles)
	return agg, true
}

// RegionMatcher maps storefront region labels to backend region literals.
// Comparison is exact after trimming and case folding.
type RegionMatcher struct {
	labels  map[string]string          // folded label -> label
	members map[string]map[string]bool // folded label -> folded regions
	reverse map[string]string          // folded region -> label
}

func NewRegionMatcher(mapping map[string][]string) *RegionMatcher {
	m := &RegionMatcher{
		labels:  make(map[string]string),
		members: make(map[string]map[string]bool),
		reverse: make(map[string]string),
	}
	for label, regions := range mapping {
		label = strings.TrimSpace(label)
		key := fold(label)
		m.labels[key] = label
		set := make(map[string]bool, len(regions))
		for _, r := range regions {
			fr := fold(r)
			set[fr] = true
			if prev, ok := m.reverse[fr]; !ok || label < prev {
				m.reverse[fr] = label
			}
		}
		m.members[key] = set
	}
	return m
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Label returns the storefront label for a backend region; regions no label
// claims are their own label.
func (m *RegionMatcher) Label(region string) string {
	if label, ok := m.reverse[fold(region)]; ok {
		return label
	}
	return strings.TrimSpace(region)
}

// Canonical returns the configured spelling of a requested label.
func (m *RegionMatcher) Canonical(label string) string {
	if l, ok := m.labels[fold(label)]; ok {
		return l
	}
	return strings.TrimSpace(label)
}

// Matches reports whether a backend region belongs to the requested label.
// A label with no mapping matches only itself.
func (m *RegionMatcher) Matches(label, region string) bool {
	if set, ok := m.members[fold(label)]; ok {
		return set[fold(region)]
	}
	return fold(label) == fold(region)
}

type regionGroup struct {
	agg       models.RegionAggregate
	bundleIDs map[string]bool
}

// RegionIndex incrementally groups bundles by region. With a filter label
// set, countries outside the label's regions are excluded entirely and the
// group is keyed by the label.
type RegionIndex struct {
	matcher *RegionMatcher
	filter  string
	groups  map[string]*regionGroup
}

func NewRegionIndex(matcher *RegionMatcher, filter string) *RegionIndex {
	if matcher == nil {
		matcher = NewRegionMatcher(nil)
	}
	return &RegionIndex{matcher: matcher, filter: strings.TrimSpace(filter), groups: make(map[string]*regionGroup)}
}

// Add folds one bundle into every region one of its countries resolves to.
// It reports whether the bundle landed in any group.
func (x *RegionIndex) Add(b models.NormalizedBundle) bool {
	added := false
	for _, c := range b.Countries {
		region := ResolveRegion(c.ISO, c.Name, c.Region)

		var key string
		if x.filter != "" {
			if !x.matcher.Matches(x.filter, region) {
				continue
			}
			key = x.matcher.Canonical(x.filter)
		} else {
			key = x.matcher.Label(region)
		}

		g, ok := x.groups[key]
		if !ok {
			g = &regionGroup{
				agg:       models.RegionAggregate{Region: key, Countries: make(map[string]models.CountryRef)},
				bundleIDs: make(map[string]bool),
			}
			x.groups[key] = g
		}

		iso := NormalizeISO(c.ISO)
		ref := iso
		if ref == "" {
			ref = c.Name
		}
		if _, seen := g.agg.Countries[ref]; !seen {
			g.agg.Countries[ref] = models.CountryRef{Name: c.Name, ISO: iso, Flag: Flag(iso)}
		}

		if !g.bundleIDs[b.ID] {
			g.bundleIDs[b.ID] = true
			g.agg.Bundles = append(g.agg.Bundles, b)
			g.agg.MinPricePerGB = foldMin(g.agg.MinPricePerGB, b.PricePerGB)
		}
		added = true
	}
	return added
}

// Map returns the aggregates keyed by region.
func (x *RegionIndex) Map() map[string]models.RegionAggregate {
	out := make(map[string]models.RegionAggregate, len(x.groups))
	for key := range x.groups {
		out[key] = x.aggregate(key)
	}
	return out
}

// Regions returns the aggregates ordered by region name.
func (x *RegionIndex) Regions() []models.RegionAggregate {
	out := make([]models.RegionAggregate, 0, len(x.groups))
	for key := range x.groups {
		out = append(out, x.aggregate(key))
	}
	SortRegions(out, SortByName)
	return out
}

func (x *RegionIndex) aggregate(key string) models.RegionAggregate {
	src := x.groups[key].agg
	agg := src
	agg.Countries = make(map[string]models.CountryRef, len(src.Countries))
	refs := make([]models.CountryRef, 0, len(src.Countries))
	for k, c := range src.Countries {
		agg.Countries[k] = c
		refs = append(refs, c)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].ISO < refs[j].ISO
	})
	if len(refs) > SampleCountryLimit {
		refs = refs[:SampleCountryLimit]
	}
	agg.SampleCountries = refs
	agg.CountryCount = len(agg.Countries)
	agg.Bundles = append([]models.NormalizedBundle(nil), src.Bundles...)
	sortBundles(agg.Bundles)
	agg.BundleCount = len(agg.Bundles)
	return agg
}

// AggregateByRegion groups bundles by region, optionally restricted to one
// storefront label.
func AggregateByRegion(bundles []models.NormalizedBundle, matcher *RegionMatcher, regionFilter string) map[string]models.RegionAggregate {
	x := NewRegionIndex(matcher, regionFilter)
	for _, b := range bundles {
		x.Add(b)
	}
	return x.Map()
}

// Sort orders for aggregate listings.
const (
	SortByName  = "name"
	SortByPrice = "price"
)

// SortCountries sorts in place by name, or by minimum price-per-GB. The
// price order drops aggregates that have no priced bundle.
func SortCountries(items []models.CountryAggregate, by string) []models.CountryAggregate {
	if by == SortByPrice {
		priced := items[:0]
		for _, a := range items {
			if a.MinPricePerGB.Valid {
				priced = append(priced, a)
			}
		}
		sort.Slice(priced, func(i, j int) bool {
			a, b := priced[i].MinPricePerGB.Decimal, priced[j].MinPricePerGB.Decimal
			if !a.Equal(b) {
				return a.LessThan(b)
			}
			return priced[i].CountryISO < priced[j].CountryISO
		})
		return priced
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CountryName != items[j].CountryName {
			return items[i].CountryName < items[j].CountryName
		}
		return items[i].CountryISO < items[j].CountryISO
	})
	return items
}

// SortRegions is SortCountries for region aggregates.
func SortRegions(items []models.RegionAggregate, by string) []models.RegionAggregate {
	if by == SortByPrice {
		priced := items[:0]
		for _, a := range items {
			if a.MinPricePerGB.Valid {
				priced = append(priced, a)
			}
		}
		sort.Slice(priced, func(i, j int) bool {
			a, b := priced[i].MinPricePerGB.Decimal, priced[j].MinPricePerGB.Decimal
			if !a.Equal(b) {
				return a.LessThan(b)
			}
			return priced[i].Region < priced[j].Region
		})
		return priced
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Region < items[j].Region })
	return items
}
