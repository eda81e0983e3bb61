package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

func raw(name, iso, region string, mb string, price string) models.RawBundle {
	return models.RawBundle{
		Name:       name,
		Countries:  []models.Country{{Name: CountryName(iso), ISO: iso, Region: region}},
		DataAmount: models.DataAmount(mb),
		Duration:   30,
		Price:      decimal.RequireFromString(price),
	}
}

func TestParseDataAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1000", 1000},
		{"-1", UnlimitedSentinel},
		{"5GB", 5000},
		{"1.5 gb", 1500},
		{"500 MB", 500},
		{"1TB", 1000000},
		{"Unlimited", UnlimitedSentinel},
		{" 250 ", 250},
	}
	for _, tc := range cases {
		got, err := ParseDataAmount(models.DataAmount(tc.in))
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "lots", "5 GiB", "-20"} {
		_, err := ParseDataAmount(models.DataAmount(bad))
		assert.Error(t, err, bad)
	}
}

func TestFormatData(t *testing.T) {
	assert.Equal(t, "Unlimited", FormatData(-1, false))
	assert.Equal(t, "Unlimited", FormatData(3000, true))
	assert.Equal(t, "5GB", FormatData(5000, false))
	assert.Equal(t, "1GB", FormatData(1000, false))
	assert.Equal(t, "1.5GB", FormatData(1500, false))
	assert.Equal(t, "500MB", FormatData(500, false))
}

func TestFormatValidity(t *testing.T) {
	assert.Equal(t, "1 day", FormatValidity(1))
	assert.Equal(t, "7 days", FormatValidity(7))
	assert.Equal(t, "0 days", FormatValidity(0))
}

func TestNormalize_PricePerGBFormula(t *testing.T) {
	for _, tc := range []struct{ mb, price string }{
		{"1000", "3.99"}, {"5000", "12.99"}, {"3000", "10"}, {"500", "2.50"}, {"20000", "45.00"},
	} {
		b, err := Normalize(raw("X-"+tc.mb, "FR", "Europe", tc.mb, tc.price))
		require.NoError(t, err)

		mb, _ := decimal.NewFromString(tc.mb)
		want := decimal.RequireFromString(tc.price).Div(mb.Div(decimal.NewFromInt(1000)))
		require.True(t, b.PricePerGB.Valid)
		assert.True(t, want.Equal(b.PricePerGB.Decimal), "%s: want %s got %s", tc.mb, want, b.PricePerGB.Decimal)
	}
}

func TestNormalize_UnlimitedHasNoPricePerGB(t *testing.T) {
	bySentinel := raw("U-1", "FR", "Europe", "-1", "29.99")
	byFlag := raw("U-2", "FR", "Europe", "10000", "29.99")
	byFlag.Unlimited = true
	flagOnly := raw("U-3", "FR", "Europe", "", "29.99")
	flagOnly.Unlimited = true

	for _, r := range []models.RawBundle{bySentinel, byFlag, flagOnly} {
		b, err := Normalize(r)
		require.NoError(t, err, r.Name)
		assert.True(t, b.Unlimited, r.Name)
		assert.False(t, b.PricePerGB.Valid, r.Name)
		assert.Equal(t, "Unlimited", b.DataDisplay, r.Name)
	}
}

func TestNormalize_FieldsAndPrimaryCountry(t *testing.T) {
	r := models.RawBundle{
		Name: " EU-10GB ",
		Countries: []models.Country{
			{Name: "", ISO: "de", Region: "Europe"},
			{Name: "France", ISO: "FR", Region: "Europe"},
		},
		DataAmount: "10000",
		Duration:   1,
		Price:      decimal.RequireFromString("20"),
	}
	b, err := Normalize(r)
	require.NoError(t, err)

	assert.Equal(t, "EU-10GB", b.ID)
	assert.Equal(t, "DE", b.PrimaryCountryISO)
	assert.Equal(t, "Germany", b.PrimaryCountryName)
	assert.Equal(t, []string{"DE", "FR"}, b.CountryISOList)
	assert.Equal(t, "10GB", b.DataDisplay)
	assert.Equal(t, "1 day", b.ValidityDisplay)
	assert.Equal(t, models.BundleTypeRegional, b.Type)
	assert.True(t, decimal.NewFromInt(2).Equal(b.PricePerGB.Decimal))
}

func TestNormalize_ZeroDataHasNoPricePerGB(t *testing.T) {
	b, err := Normalize(raw("ZERO", "FR", "Europe", "0", "1"))
	require.NoError(t, err)
	assert.False(t, b.PricePerGB.Valid)
	assert.Equal(t, "0MB", b.DataDisplay)
}

func TestNormalize_TransformFailures(t *testing.T) {
	noName := raw("", "FR", "Europe", "1000", "1")
	badData := raw("BAD", "FR", "Europe", "a lot", "1")
	negPrice := raw("NEG", "FR", "Europe", "1000", "-1")

	for _, r := range []models.RawBundle{noName, badData, negPrice} {
		_, err := Normalize(r)
		require.Error(t, err)
		assert.True(t, apperror.IsType(err, apperror.TypeTransform))
	}
}

func TestNormalizer_SkipsBadAndDuplicateRecords(t *testing.T) {
	var skipped []string
	n := NewNormalizer(func(name string, err error) { skipped = append(skipped, name) })

	first := n.Add([]models.RawBundle{
		raw("FR-1GB", "FR", "Europe", "1000", "3.99"),
		raw("BROKEN", "FR", "Europe", "???", "3.99"),
	})
	second := n.Add([]models.RawBundle{
		raw("FR-1GB", "FR", "Europe", "2000", "9.99"),
		raw("DE-1GB", "DE", "Europe", "1000", "4.99"),
	})

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.Equal(t, []string{"BROKEN", "FR-1GB"}, skipped)
	require.Len(t, n.Bundles(), 2)
	assert.Equal(t, "1GB", n.Bundles()[0].DataDisplay)
}

func TestRawBundle_DecodesNumericAndTextDataAmount(t *testing.T) {
	payload := `[
		{"name":"A","countries":[{"name":"France","iso":"FR","region":"Europe"}],"dataAmount":5000,"duration":30,"price":12.99},
		{"name":"B","countries":[{"name":"France","iso":"FR"}],"dataAmount":"3GB","duration":7,"price":"8.50"},
		{"name":"C","countries":[],"dataAmount":-1,"duration":30,"unlimited":true,"price":50}
	]`
	var raws []models.RawBundle
	require.NoError(t, json.Unmarshal([]byte(payload), &raws))

	bundles := NormalizeAll(raws, nil)
	require.Len(t, bundles, 3)
	assert.Equal(t, int64(5000), bundles[0].DataMB)
	assert.Equal(t, int64(3000), bundles[1].DataMB)
	assert.True(t, bundles[2].Unlimited)
	assert.Equal(t, "", bundles[2].PrimaryCountryISO)
}

func TestNormalize_UndecodedRecordIsTransformFailure(t *testing.T) {
	_, err := Normalize(models.RawBundle{Name: "DE-BROKEN", DecodeErr: errors.New("bad price")})
	require.Error(t, err)
	assert.True(t, apperror.IsType(err, apperror.TypeTransform))
	assert.Contains(t, err.Error(), "DE-BROKEN")
}
