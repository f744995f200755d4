package upseller

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Platforms are the marketplace names the panel aggregates.
var Platforms = []string{
	"Mercado Libre",
	"Shopee",
	"Amazon",
	"Magalu",
	"Shein",
	"TikTok Shop",
	"AliExpress",
}

const platformSimilarity = 0.9

// CanonicalPlatform maps a platform label as rendered (abbreviated, localized
// or misspelled) to its canonical name. Labels that resemble no known platform
// are returned as they are.
func CanonicalPlatform(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}

	best := ""
	bestScore := 0.0
	for _, p := range Platforms {
		score := matchr.JaroWinkler(strings.ToLower(label), strings.ToLower(p), false)
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	if bestScore >= platformSimilarity {
		return best
	}
	return label
}
