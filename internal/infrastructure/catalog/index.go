package catalog

import (
	"sort"

	"github.com/krittawat/order-register/internal/core/domain"
)

// LookupConfig tunes the tier floors and result cap of the matcher.
type LookupConfig struct {
	SynonymFloor float64
	FuzzyFloor   float64
	MaxMatches   int
}

func DefaultLookupConfig() LookupConfig {
	return LookupConfig{
		SynonymFloor: 0.5,
		FuzzyFloor:   0.6,
		MaxMatches:   5,
	}
}

func (c LookupConfig) normalize() LookupConfig {
	out := c
	def := DefaultLookupConfig()
	if out.SynonymFloor <= 0 || out.SynonymFloor > 1 {
		out.SynonymFloor = def.SynonymFloor
	}
	if out.FuzzyFloor <= 0 || out.FuzzyFloor > 1 {
		out.FuzzyFloor = def.FuzzyFloor
	}
	if out.MaxMatches <= 0 {
		out.MaxMatches = def.MaxMatches
	}
	return out
}

// aliasKey is one normalized key generated from a canonical name or synonym.
type aliasKey struct {
	skuID  string
	key    string
	tokens []string
}

// Index is an immutable catalog snapshot. Build once, share freely: lookups
// never mutate it, and reloads install a whole new Index instance.
type Index struct {
	version string
	cfg     LookupConfig
	entries map[string]domain.CatalogEntry
	exact   map[string][]string
	aliases []aliasKey
}

// Build indexes every active catalog entry under the normalized-key set
// generated from its canonical name and all synonyms.
func Build(entries []domain.CatalogEntry, version string, cfg LookupConfig) *Index {
	idx := &Index{
		version: version,
		cfg:     cfg.normalize(),
		entries: make(map[string]domain.CatalogEntry, len(entries)),
		exact:   make(map[string][]string),
	}

	for _, entry := range entries {
		if !entry.Active {
			continue
		}
		idx.entries[entry.SKUID] = entry
		for _, alias := range append([]string{entry.Name}, entry.Synonyms...) {
			key := Key(alias)
			if key == "" {
				continue
			}
			idx.exact[key] = appendUnique(idx.exact[key], entry.SKUID)
			idx.aliases = append(idx.aliases, aliasKey{
				skuID:  entry.SKUID,
				key:    key,
				tokens: Tokens(alias),
			})
		}
	}
	return idx
}

func (idx *Index) Version() string { return idx.version }

func (idx *Index) Entry(skuID string) (domain.CatalogEntry, bool) {
	entry, ok := idx.entries[skuID]
	return entry, ok
}

// Lookup resolves a candidate description through three tiers, first
// non-empty tier winning: exact normalized-key equality, Jaccard token
// overlap, then normalized Levenshtein. An empty result means no reasonable
// candidate exists, as opposed to a low-confidence fit.
func (idx *Index) Lookup(description string) []domain.SKUMatch {
	key := Key(description)
	if key == "" {
		return nil
	}

	if skus := idx.exact[key]; len(skus) > 0 {
		matches := make([]domain.SKUMatch, 0, len(skus))
		for _, sku := range skus {
			matches = append(matches, domain.SKUMatch{SKUID: sku, Score: 1.0, Reason: domain.MatchExact})
		}
		return idx.rank(matches)
	}

	tokens := Tokens(description)
	if matches := idx.scoreTier(domain.MatchSynonym, idx.cfg.SynonymFloor, func(alias aliasKey) float64 {
		return jaccard(tokens, alias.tokens)
	}); len(matches) > 0 {
		return matches
	}

	return idx.scoreTier(domain.MatchFuzzy, idx.cfg.FuzzyFloor, func(alias aliasKey) float64 {
		return levenshteinSimilarity(key, alias.key)
	})
}

// scoreTier keeps the best alias score per SKU at or above the floor.
func (idx *Index) scoreTier(reason domain.MatchReason, floor float64, score func(aliasKey) float64) []domain.SKUMatch {
	best := make(map[string]float64)
	for _, alias := range idx.aliases {
		s := score(alias)
		if s < floor {
			continue
		}
		if s > best[alias.skuID] {
			best[alias.skuID] = s
		}
	}
	if len(best) == 0 {
		return nil
	}

	matches := make([]domain.SKUMatch, 0, len(best))
	for sku, s := range best {
		matches = append(matches, domain.SKUMatch{SKUID: sku, Score: s, Reason: reason})
	}
	return idx.rank(matches)
}

// rank orders matches by score, breaking ties by shorter canonical name then
// lexical sku id so repeated lookups are deterministic.
func (idx *Index) rank(matches []domain.SKUMatch) []domain.SKUMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		ni := len(idx.entries[matches[i].SKUID].Name)
		nj := len(idx.entries[matches[j].SKUID].Name)
		if ni != nj {
			return ni < nj
		}
		return matches[i].SKUID < matches[j].SKUID
	})
	if len(matches) > idx.cfg.MaxMatches {
		matches = matches[:idx.cfg.MaxMatches]
	}
	return matches
}

func appendUnique(skus []string, sku string) []string {
	for _, existing := range skus {
		if existing == sku {
			return skus
		}
	}
	return append(skus, sku)
}
