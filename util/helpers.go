// Package util provides utility functions for working with Package URLs
// (PURLs), version ordering for range resolution, and environment-driven
// configuration.
//
//revive:disable-next-line:var-naming
package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/package-url/packageurl-go"
)

// GetEnvDefault is a convenience function for handling env vars
func GetEnvDefault(key, defVal string) string {
	val, ex := os.LookupEnv(key) // get the env var
	if !ex {                     // not found return default
		return defVal
	}
	return val // return value for env var
}

// IsEmpty checks if a string is empty or contains only whitespace
func IsEmpty(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// Contains checks if a string slice contains an item
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// EcosystemToPurlType converts an upstream ecosystem name to a PURL type
func EcosystemToPurlType(ecosystem string) string {
	mapping := map[string]string{
		"npm":       "npm",
		"PyPI":      "pypi",
		"Maven":     "maven",
		"Go":        "golang",
		"NuGet":     "nuget",
		"RubyGems":  "gem",
		"crates.io": "cargo",
		"Packagist": "composer",
		"Pub":       "pub",
		"CocoaPods": "cocoapods",
		"Hex":       "hex",
		"Alpine":    "apk",
		"Debian":    "deb",
		"Ubuntu":    "deb",
		"GitHub":    "github",
	}

	if purlType, exists := mapping[ecosystem]; exists {
		return purlType
	}

	for key, value := range mapping {
		if strings.EqualFold(key, ecosystem) {
			return value
		}
	}

	return strings.ToLower(ecosystem)
}

// BasePurlFromComponents constructs a versionless base PURL from type,
// namespace and name. Used as the catalog lookup key and for matching
// advisory ranges to package identities.
func BasePurlFromComponents(purlType, namespace, name string) string {
	if namespace != "" {
		return strings.ToLower(fmt.Sprintf("pkg:%s/%s/%s", purlType, namespace, name))
	}
	return strings.ToLower(fmt.Sprintf("pkg:%s/%s", purlType, name))
}

// ParsePURL parses a PURL string and returns the parsed PackageURL
func ParsePURL(purlStr string) (*packageurl.PackageURL, error) {
	parsed, err := packageurl.FromString(purlStr)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// SanitizeKey ensures a database key is valid for ArangoDB.
// ArangoDB keys cannot contain spaces, slashes, or brackets.
func SanitizeKey(key string) string {
	key = strings.TrimSpace(key)

	replacer := strings.NewReplacer(
		" ", "-",
		"/", "-",
		"[", "",
		"]", "",
		"(", "",
		")", "",
	)

	return replacer.Replace(key)
}
