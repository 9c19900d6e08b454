// Package types provides type definitions for structured data used throughout the brand-panel system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// BrandProfile represents the researched identity of a brand.
// It is produced once by the research stage and consumed read-only afterwards.
type BrandProfile struct {
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Tone           []string `json:"tone"`
	TargetAudience string   `json:"target_audience"`
	BrandColors    []string `json:"brand_colors,omitempty"`
	Competitors    []string `json:"competitors,omitempty"`
	USPs           []string `json:"unique_selling_propositions,omitempty"`
}
