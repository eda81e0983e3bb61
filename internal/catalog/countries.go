package catalog

import "strings"

// UnknownRegion is the region assigned when nothing better is known.
const UnknownRegion = "Unknown"

type countryInfo struct {
	Name   string
	Region string
}

// countryTable is the local reference used when a bundle's country carries
// no usable region. Keys are ISO 3166-1 alpha-2 codes.
var countryTable = map[string]countryInfo{
	// Europe
	"AD": {"Andorra", "Europe"}, "AL": {"Albania", "Europe"}, "AT": {"Austria", "Europe"},
	"BA": {"Bosnia and Herzegovina", "Europe"}, "BE": {"Belgium", "Europe"}, "BG": {"Bulgaria", "Europe"},
	"CH": {"Switzerland", "Europe"}, "CY": {"Cyprus", "Europe"}, "CZ": {"Czech Republic", "Europe"},
	"DE": {"Germany", "Europe"}, "DK": {"Denmark", "Europe"}, "EE": {"Estonia", "Europe"},
	"ES": {"Spain", "Europe"}, "FI": {"Finland", "Europe"}, "FR": {"France", "Europe"},
	"GB": {"United Kingdom", "Europe"}, "GR": {"Greece", "Europe"}, "HR": {"Croatia", "Europe"},
	"HU": {"Hungary", "Europe"}, "IE": {"Ireland", "Europe"}, "IS": {"Iceland", "Europe"},
	"IT": {"Italy", "Europe"}, "LT": {"Lithuania", "Europe"}, "LU": {"Luxembourg", "Europe"},
	"LV": {"Latvia", "Europe"}, "MC": {"Monaco", "Europe"}, "ME": {"Montenegro", "Europe"},
	"MK": {"North Macedonia", "Europe"}, "MT": {"Malta", "Europe"}, "NL": {"Netherlands", "Europe"},
	"NO": {"Norway", "Europe"}, "PL": {"Poland", "Europe"}, "PT": {"Portugal", "Europe"},
	"RO": {"Romania", "Europe"}, "RS": {"Serbia", "Europe"}, "SE": {"Sweden", "Europe"},
	"SI": {"Slovenia", "Europe"}, "SK": {"Slovakia", "Europe"}, "UA": {"Ukraine", "Europe"},
	"TR": {"Turkey", "Europe"},

	// Americas
	"US": {"United States", "North America"}, "CA": {"Canada", "North America"}, "MX": {"Mexico", "North America"},
	"AR": {"Argentina", "South America"}, "BO": {"Bolivia", "South America"}, "BR": {"Brazil", "South America"},
	"CL": {"Chile", "South America"}, "CO": {"Colombia", "South America"}, "EC": {"Ecuador", "South America"},
	"PE": {"Peru", "South America"}, "PY": {"Paraguay", "South America"}, "UY": {"Uruguay", "South America"},
	"CR": {"Costa Rica", "Central America"}, "GT": {"Guatemala", "Central America"}, "PA": {"Panama", "Central America"},
	"DO": {"Dominican Republic", "Caribbean"}, "JM": {"Jamaica", "Caribbean"}, "PR": {"Puerto Rico", "Caribbean"},

	// Asia
	"CN": {"China", "Asia"}, "HK": {"Hong Kong", "Asia"}, "ID": {"Indonesia", "Asia"},
	"IN": {"India", "Asia"}, "JP": {"Japan", "Asia"}, "KH": {"Cambodia", "Asia"},
	"KR": {"South Korea", "Asia"}, "LK": {"Sri Lanka", "Asia"}, "MO": {"Macau", "Asia"},
	"MY": {"Malaysia", "Asia"}, "NP": {"Nepal", "Asia"}, "PH": {"Philippines", "Asia"},
	"SG": {"Singapore", "Asia"}, "TH": {"Thailand", "Asia"}, "TW": {"Taiwan", "Asia"},
	"VN": {"Vietnam", "Asia"}, "KZ": {"Kazakhstan", "Asia"}, "UZ": {"Uzbekistan", "Asia"},

	// Middle East
	"AE": {"United Arab Emirates", "Middle East"}, "BH": {"Bahrain", "Middle East"}, "IL": {"Israel", "Middle East"},
	"JO": {"Jordan", "Middle East"}, "KW": {"Kuwait", "Middle East"}, "OM": {"Oman", "Middle East"},
	"QA": {"Qatar", "Middle East"}, "SA": {"Saudi Arabia", "Middle East"},

	// Africa
	"EG": {"Egypt", "Africa"}, "GH": {"Ghana", "Africa"}, "KE": {"Kenya", "Africa"},
	"MA": {"Morocco", "Africa"}, "NG": {"Nigeria", "Africa"}, "TN": {"Tunisia", "Africa"},
	"TZ": {"Tanzania", "Africa"}, "ZA": {"South Africa", "Africa"},

	// Oceania
	"AU": {"Australia", "Oceania"}, "FJ": {"Fiji", "Oceania"}, "NZ": {"New Zealand", "Oceania"},
}

var countryByName = func() map[string]string {
	m := make(map[string]string, len(countryTable))
	for iso, c := range countryTable {
		m[strings.ToLower(c.Name)] = iso
	}
	return m
}()

// NormalizeISO upper-cases and trims a country code.
func NormalizeISO(iso string) string {
	return strings.ToUpper(strings.TrimSpace(iso))
}

// CountryName returns the table name for iso, or "" when unknown.
func CountryName(iso string) string {
	return countryTable[NormalizeISO(iso)].Name
}

// lookupRegion resolves a region from the static table by ISO, then by name.
func lookupRegion(iso, name string) (string, bool) {
	if c, ok := countryTable[NormalizeISO(iso)]; ok {
		return c.Region, true
	}
	if code, ok := countryByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return countryTable[code].Region, true
	}
	return "", false
}

// ResolveRegion picks the region for a country: the backend's own region
// field, then the static table, then UnknownRegion.
func ResolveRegion(iso, name, embedded string) string {
	embedded = strings.TrimSpace(embedded)
	if embedded != "" && !strings.EqualFold(embedded, UnknownRegion) {
		return embedded
	}
	if r, ok := lookupRegion(iso, name); ok {
		return r
	}
	return UnknownRegion
}

// Flag renders the emoji flag for a two-letter ISO code.
func Flag(iso string) string {
	iso = NormalizeISO(iso)
	if len(iso) != 2 || iso[0] < 'A' || iso[0] > 'Z' || iso[1] < 'A' || iso[1] > 'Z' {
		return ""
	}
	const base = 0x1F1E6
	return string([]rune{base + rune(iso[0]-'A'), base + rune(iso[1]-'A')})
}
