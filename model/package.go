package model

import (
	"encoding/json"
	"fmt"

	"github.com/package-url/packageurl-go"
)

// Storage limits for package identity fields. A value over its limit is a
// FieldTooLongError at normalization time, never a silent truncation.
const (
	MaxTypeLen          = 16
	MaxNamespaceLen     = 255
	MaxNameLen          = 100
	MaxVersionLen       = 100
	MaxQualifiersLen    = 1024
	MaxSubpathLen       = 200
	MaxCreatedByLen     = 100
	MaxAliasLen         = 50
	MaxURLLen           = 1024
	MaxReferenceIDLen   = 50
	MaxScoringSystemLen = 50
	MaxSeverityValueLen = 50
)

// FieldTooLongError reports a package-identity or advisory field exceeding
// its storage limit.
type FieldTooLongError struct {
	Field string
	Len   int
	Max   int
}

func (e *FieldTooLongError) Error() string {
	return fmt.Sprintf("value too long for field %q: %d > %d", e.Field, e.Len, e.Max)
}

// Package is a software package identified by the purl 6-tuple
// (type, namespace, name, version, qualifiers, subpath). The canonical
// purl string is the natural key and is unique in the package collection.
type Package struct {
	Key        string            `json:"_key,omitempty"`
	Purl       string            `json:"purl"`
	Type       string            `json:"type"`
	Namespace  string            `json:"namespace,omitempty"`
	Name       string            `json:"name"`
	Version    string            `json:"version,omitempty"`
	Qualifiers map[string]string `json:"qualifiers,omitempty"`
	Subpath    string            `json:"subpath,omitempty"`
	ObjType    string            `json:"objtype,omitempty"`
}

// NewPackage builds a Package from identity components, validating field
// lengths and computing the canonical purl.
func NewPackage(ptype, namespace, name, version string, qualifiers map[string]string, subpath string) (*Package, error) {
	p := &Package{
		Type:       ptype,
		Namespace:  namespace,
		Name:       name,
		Version:    version,
		Qualifiers: qualifiers,
		Subpath:    subpath,
		ObjType:    "Package",
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	purl := p.PackageURL()
	p.Purl = purl.ToString()
	return p, nil
}

// PackageFromPurl parses a purl string into a validated Package.
func PackageFromPurl(purl string) (*Package, error) {
	parsed, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return NewPackage(parsed.Type, parsed.Namespace, parsed.Name, parsed.Version, parsed.Qualifiers.Map(), parsed.Subpath)
}

// PackageURL returns the packageurl representation of the identity tuple.
func (p *Package) PackageURL() packageurl.PackageURL {
	return packageurl.PackageURL{
		Type:       p.Type,
		Namespace:  p.Namespace,
		Name:       p.Name,
		Version:    p.Version,
		Qualifiers: packageurl.QualifiersFromMap(p.Qualifiers),
		Subpath:    p.Subpath,
	}
}

// Validate checks every identity field against its storage limit.
func (p *Package) Validate() error {
	checks := []struct {
		field string
		value string
		max   int
	}{
		{"type", p.Type, MaxTypeLen},
		{"namespace", p.Namespace, MaxNamespaceLen},
		{"name", p.Name, MaxNameLen},
		{"version", p.Version, MaxVersionLen},
		{"subpath", p.Subpath, MaxSubpathLen},
	}
	for _, c := range checks {
		if len(c.value) > c.max {
			return &FieldTooLongError{Field: c.field, Len: len(c.value), Max: c.max}
		}
	}
	if len(p.Qualifiers) > 0 {
		encoded, err := json.Marshal(p.Qualifiers)
		if err != nil {
			return err
		}
		if len(encoded) > MaxQualifiersLen {
			return &FieldTooLongError{Field: "qualifiers", Len: len(encoded), Max: MaxQualifiersLen}
		}
	}
	return nil
}
