package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/krittawat/order-register/internal/core/domain"
)

type priceBand struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

type catalogRecord struct {
	SKUID         string    `json:"sku_id"`
	Name          string    `json:"name"`
	Synonyms      []string  `json:"synonyms"`
	PermittedUOMs []string  `json:"permitted_uoms"`
	PriceBand     priceBand `json:"price_band"`
	Active        *bool     `json:"active"`
}

// LoadFile reads the master catalog wholesale from a JSON or XLSX file and
// builds an immutable index. The version is derived from the file content so
// reloads of identical catalogs are recognizable in audit output.
func LoadFile(path string, cfg LookupConfig) (*Index, error) {
	entries, version, err := readEntries(path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog %s contains no entries", path)
	}
	return Build(entries, version, cfg), nil
}

func readEntries(path string) ([]domain.CatalogEntry, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read catalog file: %w", err)
	}
	sum := sha256.Sum256(raw)
	version := hex.EncodeToString(sum[:])[:12]

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		entries, err := parseJSON(raw)
		return entries, version, err
	case ".xlsx":
		entries, err := parseXLSX(path)
		return entries, version, err
	default:
		return nil, "", fmt.Errorf("unsupported catalog format: %s", filepath.Ext(path))
	}
}

func parseJSON(raw []byte) ([]domain.CatalogEntry, error) {
	var records []catalogRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse catalog json: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(records))
	for i, rec := range records {
		entry, err := rec.toEntry()
		if err != nil {
			return nil, fmt.Errorf("catalog record %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (rec catalogRecord) toEntry() (domain.CatalogEntry, error) {
	if strings.TrimSpace(rec.SKUID) == "" {
		return domain.CatalogEntry{}, fmt.Errorf("missing sku_id")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return domain.CatalogEntry{}, fmt.Errorf("sku %s missing name", rec.SKUID)
	}
	active := true
	if rec.Active != nil {
		active = *rec.Active
	}
	return domain.CatalogEntry{
		SKUID:         rec.SKUID,
		Name:          rec.Name,
		Synonyms:      rec.Synonyms,
		PermittedUOMs: rec.PermittedUOMs,
		PriceMin:      rec.PriceBand.Min,
		PriceMax:      rec.PriceBand.Max,
		Active:        active,
	}, nil
}

// parseXLSX expects a header row of
// sku_id | name | synonyms | permitted_uoms | price_min | price_max | active
// with synonyms and permitted_uoms semicolon-separated.
func parseXLSX(path string) ([]domain.CatalogEntry, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("catalog workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read catalog rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("catalog sheet %s has no data rows", sheets[0])
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"sku_id", "name"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("catalog sheet missing column %q", required)
		}
	}

	entries := make([]domain.CatalogEntry, 0, len(rows)-1)
	for rowNum, row := range rows[1:] {
		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if cell("sku_id") == "" {
			continue
		}

		priceMin, err := parseDecimalCell(cell("price_min"))
		if err != nil {
			return nil, fmt.Errorf("catalog row %d price_min: %w", rowNum+2, err)
		}
		priceMax, err := parseDecimalCell(cell("price_max"))
		if err != nil {
			return nil, fmt.Errorf("catalog row %d price_max: %w", rowNum+2, err)
		}

		entries = append(entries, domain.CatalogEntry{
			SKUID:         cell("sku_id"),
			Name:          cell("name"),
			Synonyms:      splitList(cell("synonyms")),
			PermittedUOMs: splitList(cell("permitted_uoms")),
			PriceMin:      priceMin,
			PriceMax:      priceMax,
			Active:        parseActiveCell(cell("active")),
		})
	}
	return entries, nil
}

func parseDecimalCell(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

func parseActiveCell(value string) bool {
	switch strings.ToLower(value) {
	case "", "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
