package flow

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// RecodeRule maps a legacy category to its newer code when the product
// belongs to the newer sensor family.
type RecodeRule struct {
	LegacyCategory   string   `json:"legacyCategory" yaml:"legacyCategory"`
	Category         string   `json:"category" yaml:"category"`
	GenerationMarker string   `json:"generationMarker" yaml:"generationMarker"`
	AlwaysRecode     []string `json:"alwaysRecode" yaml:"alwaysRecode"`
}

// Catalog holds the static dictionaries of the intake domain.
type Catalog struct {
	IssueCodes                     map[string]string            `json:"issueCodes" yaml:"issueCodes"`
	CatchAllCategory               string                       `json:"catchAllCategory" yaml:"catchAllCategory"`
	CategoriesWithoutDeviceHistory []string                     `json:"categoriesWithoutDeviceHistory" yaml:"categoriesWithoutDeviceHistory"`
	CategoriesRequiringLongIssue   []string                     `json:"categoriesRequiringLongIssue" yaml:"categoriesRequiringLongIssue"`
	Recode                         RecodeRule                   `json:"recode" yaml:"recode"`
	InsertionLocations             map[string]string            `json:"insertionLocations" yaml:"insertionLocations"`
	StandardDateFormat             string                       `json:"standardDateFormat" yaml:"standardDateFormat"`
	DateFormats                    map[string]string            `json:"dateFormats" yaml:"dateFormats"`
	PurchasableSensors             map[string][]string          `json:"purchasableSensors" yaml:"purchasableSensors"`
	G7Variants                     map[string][]string          `json:"g7Variants" yaml:"g7Variants"`
	ProductTypes                   map[string]map[string]string `json:"productTypes" yaml:"productTypes"`
}

// ParseCatalog parses a YAML or JSON catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(defaultCatalogYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Validate checks the catalog is usable by the transitions.
func (c *Catalog) Validate() error {
	if c == nil {
		return fmt.Errorf("catalog required")
	}
	if strings.TrimSpace(c.CatchAllCategory) == "" {
		return fmt.Errorf("catalog catchAllCategory required")
	}
	if c.Recode.LegacyCategory == "" || c.Recode.Category == "" {
		return fmt.Errorf("catalog recode rule requires legacyCategory and category")
	}
	if c.Recode.GenerationMarker == "" {
		return fmt.Errorf("catalog recode rule requires generationMarker")
	}
	if c.StandardDateFormat == "" {
		c.StandardDateFormat = "yyyy-MM-dd"
	}
	return nil
}

// Code returns the issue code registered under name.
func (c *Catalog) Code(name string) string {
	return c.IssueCodes[name]
}

// OffersDeviceHistory reports whether externally sourced products may be
// offered for the category.
func (c *Catalog) OffersDeviceHistory(category string) bool {
	return !slices.Contains(c.CategoriesWithoutDeviceHistory, category)
}

// CanProceed reports whether the category and flags allow leaving the
// category screen.
func (c *Catalog) CanProceed(category string, flags IssueFlags) bool {
	if category == c.CatchAllCategory {
		return false
	}
	if slices.Contains(c.CategoriesRequiringLongIssue, category) && !flags.IssueLastsOverAnHour {
		return false
	}
	return true
}

// NormalizeGeneration collapses every variant of the newer sensor family
// into its family name.
func (c *Catalog) NormalizeGeneration(generation string) string {
	if strings.Contains(generation, c.Recode.GenerationMarker) {
		return c.Recode.GenerationMarker
	}
	return generation
}

// RecodeCategory returns the category to report for the given product
// generation.
func (c *Catalog) RecodeCategory(category, generation string) string {
	r := c.Recode
	if category == r.LegacyCategory && strings.Contains(generation, r.GenerationMarker) {
		return r.Category
	}
	if slices.Contains(r.AlwaysRecode, generation) {
		return r.Category
	}
	return category
}

// ProductType looks up the product type for a normalized generation and a
// category, returning "" when the table has no entry.
func (c *Catalog) ProductType(generation, category string) string {
	return c.ProductTypes[category][generation]
}

// Purchasable returns the sensor list sold in country. The second value is
// false when the country has no list.
func (c *Catalog) Purchasable(country string) ([]string, bool) {
	list, ok := c.PurchasableSensors[strings.ToUpper(strings.TrimSpace(country))]
	return list, ok
}

// DateFormat returns the simple date pattern of locale, defaulting to the
// standard format.
func (c *Catalog) DateFormat(locale string) string {
	if f, ok := c.DateFormats[locale]; ok {
		return f
	}
	for l, f := range c.DateFormats {
		if strings.EqualFold(l, strings.ReplaceAll(locale, "_", "-")) {
			return f
		}
	}
	return c.StandardDateFormat
}

// InsertionLocationLabel returns the case label of an insertion site key.
func (c *Catalog) InsertionLocationLabel(site string) string {
	if label, ok := c.InsertionLocations[site]; ok {
		return label
	}
	return site
}
