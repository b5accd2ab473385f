// Package colorscheme resolves map items and clusters to marker color
// schemes by category and source type.
package colorscheme

import (
	"errors"
	"fmt"
	"regexp"
)

// hexColorPattern matches valid hex color codes in format #RRGGBB (case insensitive).
var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ErrInvalidHexFormat indicates a color string is not #RRGGBB.
var ErrInvalidHexFormat = errors.New("invalid hex color format, expected #RRGGBB")

// IsValidHexColor validates that a color string is in valid #RRGGBB format.
func IsValidHexColor(color string) bool {
	return hexColorPattern.MatchString(color)
}

// ValidateHexColor validates a hex color and returns an error if invalid.
func ValidateHexColor(color string) error {
	if !IsValidHexColor(color) {
		return fmt.Errorf("%w: got %q", ErrInvalidHexFormat, color)
	}
	return nil
}

// Scheme is a marker color pair: the pin fill and the badge/accent color.
type Scheme struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Validate checks both scheme colors are well-formed hex.
func (s Scheme) Validate() error {
	if err := ValidateHexColor(s.Primary); err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	if err := ValidateHexColor(s.Secondary); err != nil {
		return fmt.Errorf("secondary: %w", err)
	}
	return nil
}
