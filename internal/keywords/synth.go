package keywords

import (
	"math/rand"
	"strings"
)

// Per-category inclusion probabilities. The subject is always included.
const (
	pEnergy = 0.8
	pEra    = 0.6
	pFormat = 0.9
	pLocale = 0.65
	pExtra  = 0.45
)

// fallbackQueries is returned when the dictionary holds no tokens at all.
var fallbackQueries = []string{"funny pictures", "interesting facts"}

// Synthesize builds up to n distinct, non-empty search queries by weighted
// random combination of dictionary tokens. When random drawing cannot fill n
// queries within the attempt budget, deterministic fallbacks kick in: first
// one reduced combination per subject in dictionary order, then the same over
// the extras category. An empty dictionary yields a fixed generic list.
//
// The returned slice never contains duplicates or empty strings and its
// length never exceeds n.
func Synthesize(d *Dictionary, n int, rng *rand.Rand) []string {
	if n <= 0 {
		return nil
	}
	if d == nil || d.Empty() {
		out := make([]string, 0, n)
		for _, q := range fallbackQueries {
			if len(out) == n {
				break
			}
			out = append(out, q)
		}
		return out
	}

	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	add := func(q string) {
		if q == "" || seen[q] {
			return
		}
		seen[q] = true
		out = append(out, q)
	}

	budget := 12 * n
	if budget < 40 {
		budget = 40
	}
	for attempt := 0; attempt < budget && len(out) < n; attempt++ {
		var parts []string
		if tok := maybe(rng, pEnergy, d.Energies); tok != "" {
			parts = append(parts, tok)
		}
		if tok := pick(rng, d.Subjects); tok != "" {
			parts = append(parts, tok)
		}
		if tok := maybe(rng, pEra, d.Eras); tok != "" {
			parts = append(parts, tok)
		}
		if tok := maybe(rng, pFormat, d.Formats); tok != "" {
			parts = append(parts, tok)
		}
		if tok := maybe(rng, pLocale, d.Locales); tok != "" {
			parts = append(parts, tok)
		}
		if tok := maybe(rng, pExtra, d.Extras); tok != "" {
			parts = append(parts, tok)
		}
		add(join(parts))
	}

	// Tier 1: one reduced combination per subject, in dictionary order.
	for _, subject := range d.Subjects {
		if len(out) == n {
			break
		}
		add(join([]string{pick(rng, d.Energies), subject, pick(rng, d.Formats)}))
	}

	// Tier 2: the same shape over extras.
	for _, extra := range d.Extras {
		if len(out) == n {
			break
		}
		add(join([]string{pick(rng, d.Energies), extra, pick(rng, d.Formats)}))
	}

	return out
}

func join(parts []string) string {
	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func pick(rng *rand.Rand, tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	return tokens[rng.Intn(len(tokens))]
}

func maybe(rng *rand.Rand, p float64, tokens []string) string {
	if len(tokens) == 0 || rng.Float64() >= p {
		return ""
	}
	return pick(rng, tokens)
}
