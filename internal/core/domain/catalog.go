package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CatalogEntry is one SKU from the master product catalog. Entries are
// read-only within a processing run; reloads install a whole new index.
type CatalogEntry struct {
	SKUID         string          `json:"sku_id"`
	Name          string          `json:"name"`
	Synonyms      []string        `json:"synonyms,omitempty"`
	PermittedUOMs []string        `json:"permitted_uoms,omitempty"`
	PriceMin      decimal.Decimal `json:"price_min"`
	PriceMax      decimal.Decimal `json:"price_max"`
	Active        bool            `json:"active"`
}

func (e CatalogEntry) PermitsUOM(uom string) bool {
	target := CanonicalUOM(uom)
	for _, permitted := range e.PermittedUOMs {
		if CanonicalUOM(permitted) == target {
			return true
		}
	}
	return false
}

// CanonicalUOM folds the unit spellings seen in messages and catalogs onto
// one vocabulary so "pcs", "ea", and "each" all compare equal.
func CanonicalUOM(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ""
	case "pc", "pcs", "piece", "pieces", "ea", "each":
		return "each"
	case "m", "meter", "meters":
		return "m"
	case "box", "boxes":
		return "box"
	case "roll", "rolls":
		return "roll"
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}

// Customer carries the order-relevant slice of customer master data.
type Customer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OrdersBlocked bool   `json:"orders_blocked"`
	BlockReason   string `json:"block_reason,omitempty"`
}
