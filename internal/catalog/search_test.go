package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

func sampleBundles(t *testing.T) []models.NormalizedBundle {
	eu := raw("EU-5GB", "DE", "Europe", "5000", "10")
	eu.Countries = append(eu.Countries, models.Country{Name: "France", ISO: "FR", Region: "Europe"})
	world := raw("Global-10GB", "US", "North America", "10000", "40")
	return normalized(t,
		raw("FR-1GB", "FR", "Europe", "1000", "3.99"),
		raw("FR-5GB", "FR", "Europe", "5000", "12.99"),
		raw("JP-3GB", "JP", "Asia", "3000", "9"),
		eu, world,
	)
}

func TestSearch(t *testing.T) {
	bundles := sampleBundles(t)

	byISO := Search(bundles, " fr ")
	assert.Len(t, byISO, 3)

	byRegion := Search(bundles, "ASIA")
	require.Len(t, byRegion, 1)
	assert.Equal(t, "JP-3GB", byRegion[0].ID)

	assert.Empty(t, Search(bundles, "zz-none"))
}

func TestSearch_BlankQueryReturnsInput(t *testing.T) {
	bundles := sampleBundles(t)
	assert.Equal(t, bundles, Search(bundles, ""))
	assert.Equal(t, bundles, Search(bundles, "   "))
}

func TestSearch_Idempotent(t *testing.T) {
	countries := NewCountryIndex()
	for _, b := range sampleBundles(t) {
		countries.Add(b)
	}
	items := countries.Countries()

	once := Search(items, "fra")
	assert.Equal(t, once, Search(once, "fra"))
	require.Len(t, once, 1)
	assert.Equal(t, "FR", once[0].CountryISO)
}

func TestFilterByType(t *testing.T) {
	bundles := sampleBundles(t)

	assert.Len(t, FilterByType(bundles, models.BundleTypeLocal), 3)
	assert.Len(t, FilterByType(bundles, models.BundleTypeRegional), 1)
	global := FilterByType(bundles, models.BundleTypeGlobal)
	require.Len(t, global, 1)
	assert.Equal(t, "Global-10GB", global[0].ID)
	assert.Len(t, FilterByType(bundles, ""), len(bundles))
}

func TestPaginate_CompletenessAndDeterminism(t *testing.T) {
	items := make([]int, 47)
	for i := range items {
		items[i] = i
	}

	first := Paginate(items, 1, 20)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 47, first.TotalItems)

	var all []int
	for p := 1; p <= first.TotalPages; p++ {
		page := Paginate(items, p, 20)
		assert.Equal(t, p, page.Page)
		all = append(all, page.Items...)
	}
	assert.Equal(t, items, all)
	assert.Equal(t, Paginate(items, 2, 20), Paginate(items, 2, 20))
}

func TestPaginate_OutOfRangeResetsToFirstPage(t *testing.T) {
	items := []string{"a", "b", "c"}

	beyond := Paginate(items, 9, 2)
	assert.Equal(t, 1, beyond.Page)
	assert.Equal(t, []string{"a", "b"}, beyond.Items)

	negative := Paginate(items, -3, 2)
	assert.Equal(t, 1, negative.Page)

	defaults := Paginate(items, 1, 0)
	assert.Equal(t, DefaultPageSize, defaults.PageSize)
	assert.Len(t, defaults.Items, 3)
}

func TestPaginate_Empty(t *testing.T) {
	page := Paginate([]string{}, 3, 20)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestSearch_MatchesResolvedRegion(t *testing.T) {
	bundles := normalized(t, raw("DE-1GB", "DE", "", "1000", "4.50"))

	assert.Equal(t, "Europe", bundles[0].Countries[0].Region)
	assert.Equal(t, "Europe", AggregateByCountry(bundles)["DE"].Region)
	hits := Search(bundles, "europe")
	require.Len(t, hits, 1)
	assert.Equal(t, "DE-1GB", hits[0].ID)
}
