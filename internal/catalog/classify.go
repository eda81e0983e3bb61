package catalog

import (
	"strings"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

// The backend has no plan-type field, so "global" is inferred. Any one of
// these signals is enough.
const (
	// GlobalMinCountries is the coverage size at which a bundle counts as global.
	GlobalMinCountries = 50

	// GlobalKeyword matched case-insensitively against name and group.
	GlobalKeyword = "global"
)

// IsGlobal reports whether a bundle is classified as global.
func IsGlobal(countryCount int, roamingEnabled bool, name, group string) bool {
	if countryCount >= GlobalMinCountries {
		return true
	}
	if roamingEnabled {
		return true
	}
	return strings.Contains(strings.ToLower(name), GlobalKeyword) ||
		strings.Contains(strings.ToLower(group), GlobalKeyword)
}

// Classify returns the storefront type for a bundle.
func Classify(countryCount int, roamingEnabled bool, name, group string) models.BundleType {
	switch {
	case IsGlobal(countryCount, roamingEnabled, name, group):
		return models.BundleTypeGlobal
	case countryCount <= 1:
		return models.BundleTypeLocal
	default:
		return models.BundleTypeRegional
	}
}
