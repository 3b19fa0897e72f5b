// Package styles holds the service catalog durations. Styles not in the
// table fall back to the caller's default (usually the salon's configured
// default duration).
package styles

import "strings"

// durations is keyed by canonical style name; lookups are case-insensitive.
var durations = map[string]int{
	"box braids":        240,
	"knotless braids":   300,
	"micro braids":      480,
	"cornrows":          180,
	"senegalese twists": 360,
	"faux locs":         420,
	"crochet braids":    180,
	"goddess braids":    240,
	"fulani braids":     300,
}

const FallbackDurationMinutes = 240

// Duration returns the catalog duration for style, or ok=false when the
// style is unknown.
func Duration(style string) (int, bool) {
	d, ok := durations[strings.ToLower(strings.TrimSpace(style))]
	return d, ok
}

// DurationOrDefault resolves style through the catalog, falling back to
// fallback, or to the catalog-wide default when fallback is not positive.
func DurationOrDefault(style string, fallback int) int {
	if d, ok := Duration(style); ok {
		return d
	}
	if fallback > 0 {
		return fallback
	}
	return FallbackDurationMinutes
}
