package models

import "github.com/shopspring/decimal"

// CountryAggregate groups bundles attributed to one country.
type CountryAggregate struct {
	CountryName   string              `json:"countryName"`
	CountryISO    string              `json:"countryIso"`
	Flag          string              `json:"flag"`
	Region        string              `json:"region"`
	Bundles       []NormalizedBundle  `json:"bundles"`
	BundleCount   int                 `json:"bundleCount"`
	MinPricePerGB decimal.NullDecimal `json:"minPricePerGb"`
}

func (a CountryAggregate) SearchFields() []string {
	return []string{a.CountryName, a.CountryISO, a.Region}
}

// CountryRef is a country entry inside a region aggregate.
type CountryRef struct {
	Name string `json:"name"`
	ISO  string `json:"iso"`
	Flag string `json:"flag"`
}

// RegionAggregate groups bundles and covered countries by region name.
type RegionAggregate struct {
	Region          string                `json:"region"`
	Countries       map[string]CountryRef `json:"countries"`
	CountryCount    int                   `json:"countryCount"`
	SampleCountries []CountryRef          `json:"sampleCountries"`
	Bundles         []NormalizedBundle    `json:"bundles"`
	BundleCount     int                   `json:"bundleCount"`
	MinPricePerGB   decimal.NullDecimal   `json:"minPricePerGb"`
}

func (a RegionAggregate) SearchFields() []string {
	fields := make([]string, 0, 1+2*len(a.Countries))
	fields = append(fields, a.Region)
	for _, c := range a.Countries {
		fields = append(fields, c.Name, c.ISO)
	}
	return fields
}
