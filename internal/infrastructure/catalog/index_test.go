package catalog

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/krittawat/order-register/internal/core/domain"
)

func entry(skuID, name string, synonyms ...string) domain.CatalogEntry {
	return domain.CatalogEntry{
		SKUID:         skuID,
		Name:          name,
		Synonyms:      synonyms,
		PermittedUOMs: []string{"pcs"},
		PriceMin:      decimal.RequireFromString("1.00"),
		PriceMax:      decimal.RequireFromString("100.00"),
		Active:        true,
	}
}

func buildIndex(entries ...domain.CatalogEntry) *Index {
	return Build(entries, "v-test", DefaultLookupConfig())
}

func TestLookupExactTier(t *testing.T) {
	idx := buildIndex(
		entry("SKU-WIDGET", "Blue Widget", "widget, blue"),
		entry("SKU-OTHER", "Copper cable"),
	)

	matches := idx.Lookup("blue widget")
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	if matches[0].SKUID != "SKU-WIDGET" || matches[0].Score != 1.0 || matches[0].Reason != domain.MatchExact {
		t.Fatalf("unexpected match %+v", matches[0])
	}

	// Token order and punctuation never matter for the exact tier.
	reordered := idx.Lookup("Widget, BLUE")
	if len(reordered) != 1 || reordered[0].Reason != domain.MatchExact {
		t.Fatalf("expected exact match on reordered tokens, got %+v", reordered)
	}
}

// Stemming inside the exact key means inflected descriptions still land in
// the exact tier at full confidence, not in the fuzzy tier.
func TestLookupExactTierOnInflectedForm(t *testing.T) {
	idx := buildIndex(entry("SKU-WIDGET", "Blue Widget"))

	matches := idx.Lookup("blue widgets")
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	if matches[0].SKUID != "SKU-WIDGET" || matches[0].Score != 1.0 || matches[0].Reason != domain.MatchExact {
		t.Fatalf("expected exact match at 1.0 for inflected form, got %+v", matches[0])
	}
}

func TestLookupSynonymTierOnPartialOverlap(t *testing.T) {
	idx := buildIndex(entry("SKU-WIDGET", "Blue Widget", "widget, blue"))

	// Quantity noise dilutes the overlap to exactly the floor: {5,x,blue,widget}
	// against {blue,widget} is 2/4.
	matches := idx.Lookup("5 x blue widget")
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	match := matches[0]
	if match.SKUID != "SKU-WIDGET" || match.Reason != domain.MatchSynonym {
		t.Fatalf("expected synonym tier, got %+v", match)
	}
	if math.Abs(match.Score-0.5) > 1e-9 {
		t.Fatalf("expected score 0.5, got %f", match.Score)
	}
}

func TestLookupFuzzyTierOnTypo(t *testing.T) {
	idx := buildIndex(entry("SKU-CABLE", "Copper cable"))

	matches := idx.Lookup("coper cable")
	if len(matches) != 1 {
		t.Fatalf("expected one fuzzy match, got %d", len(matches))
	}
	if matches[0].Reason != domain.MatchFuzzy {
		t.Fatalf("expected fuzzy tier, got %+v", matches[0])
	}
	if matches[0].Score < 0.6 {
		t.Fatalf("expected score above floor, got %f", matches[0].Score)
	}
}

func TestLookupNoReasonableCandidate(t *testing.T) {
	idx := buildIndex(entry("SKU-CABLE", "Copper cable"))

	if matches := idx.Lookup("unobtainium rod"); len(matches) != 0 {
		t.Fatalf("expected no matches, got %+v", matches)
	}
	if matches := idx.Lookup("   "); matches != nil {
		t.Fatalf("expected nil for blank description, got %+v", matches)
	}
}

func TestLookupSkipsInactiveEntries(t *testing.T) {
	retired := entry("SKU-OLD", "Blue Widget")
	retired.Active = false
	idx := buildIndex(retired)

	if matches := idx.Lookup("blue widget"); len(matches) != 0 {
		t.Fatalf("inactive entry must not match, got %+v", matches)
	}
	if _, ok := idx.Entry("SKU-OLD"); ok {
		t.Fatalf("inactive entry must not be resolvable")
	}
}

func TestLookupRankingDeterministicAndCapped(t *testing.T) {
	cfg := DefaultLookupConfig()
	cfg.MaxMatches = 2
	idx := Build([]domain.CatalogEntry{
		entry("SKU-A", "Steel bolt m8"),
		entry("SKU-B", "Steel bolt m8 long"),
		entry("SKU-C", "Steel bolt m8 short"),
	}, "v-test", cfg)

	matches := idx.Lookup("steel bolt")
	if len(matches) != 2 {
		t.Fatalf("expected cap at 2 matches, got %d", len(matches))
	}
	// Highest overlap first; ties by shorter canonical name.
	if matches[0].SKUID != "SKU-A" {
		t.Fatalf("expected SKU-A first, got %s", matches[0].SKUID)
	}

	again := idx.Lookup("steel bolt")
	for i := range matches {
		if matches[i] != again[i] {
			t.Fatalf("lookup not deterministic: %+v vs %+v", matches, again)
		}
	}
}

func TestIndexVersion(t *testing.T) {
	idx := buildIndex(entry("SKU-A", "Widget"))
	if idx.Version() != "v-test" {
		t.Fatalf("expected v-test, got %s", idx.Version())
	}
}
