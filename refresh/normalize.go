package refresh

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	risingGlyph  = "🔺"
	fallingGlyph = "🔻"
)

// normalizePrice turns a raw upstream price into a fixed 4-decimal
// string.
func normalizePrice(raw string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("bad price %q: %w", raw, err)
	}
	return d.StringFixed(4), nil
}

// normalizeChange turns a raw signed 24h percentage into a directional
// glyph plus the absolute value at 2 decimals, e.g. "🔻 3.20%".
func normalizeChange(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return "", fmt.Errorf("bad percentage %q: %w", raw, err)
	}
	glyph := risingGlyph
	if d.IsNegative() {
		glyph = fallingGlyph
	}
	return fmt.Sprintf("%s %s%%", glyph, d.Abs().StringFixed(2)), nil
}
