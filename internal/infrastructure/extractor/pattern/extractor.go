// Package pattern is the built-in template extractor: it recognizes
// "quantity description" shaped segments in free text and produces line
// candidates without calling the external extraction service.
package pattern

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/core/ports"
)

const (
	ExtractorID = "pattern/v1"

	templateConfidence = 0.9
	fallbackConfidence = 0.1
)

var (
	// Unanchored at the front so lead-in words ("Need 2x ...") still parse.
	lineRe = regexp.MustCompile(`(?i)(?:order:?\s*)?(?P<qty>\d+)\s*(?:x|×)?\s*(?P<uom>pcs?|pieces?|m|meters?|box(?:es)?|rolls?|ea|each)?\s+(?P<item>[\p{L}\p{N} .\-"'/]+?)(?:\s*@\s*(?P<price>\d+(?:\.\d+)?))?$`)

	segmentSplitRe = regexp.MustCompile(`[\n,;]+| and `)
)

type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// Extract splits the message into segments and parses each against the
// quantity+description template. Segments that fit the template carry high
// extraction confidence; when nothing fits, the whole message becomes a
// single low-confidence candidate so the record routes to review instead of
// being dropped.
func (e *Extractor) Extract(ctx context.Context, text string, attachmentRefs []string) ([]domain.LineCandidate, error) {
	full := strings.TrimSpace(text)
	if len(attachmentRefs) > 0 && e.storage != nil {
		attachmentText, err := e.readAttachments(ctx, attachmentRefs)
		if err != nil {
			return nil, err
		}
		full = strings.TrimSpace(full + "\n" + attachmentText)
	}
	if full == "" {
		return nil, nil
	}

	var candidates []domain.LineCandidate
	for _, segment := range segmentSplitRe.Split(full, -1) {
		if candidate, ok := parseSegment(segment); ok {
			candidates = append(candidates, candidate)
		}
	}

	if len(candidates) == 0 {
		candidates = append(candidates, domain.LineCandidate{
			Description: full,
			Quantity:    1,
			Confidence:  fallbackConfidence,
			Extractor:   ExtractorID,
		})
	}
	return candidates, nil
}

func parseSegment(segment string) (domain.LineCandidate, bool) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return domain.LineCandidate{}, false
	}

	groups := lineRe.FindStringSubmatch(segment)
	if groups == nil {
		return domain.LineCandidate{}, false
	}

	qty, err := strconv.Atoi(groups[lineRe.SubexpIndex("qty")])
	if err != nil || qty <= 0 {
		return domain.LineCandidate{}, false
	}

	candidate := domain.LineCandidate{
		Description: strings.TrimSpace(groups[lineRe.SubexpIndex("item")]),
		Quantity:    qty,
		UOM:         normalizeUOM(groups[lineRe.SubexpIndex("uom")]),
		Confidence:  templateConfidence,
		Extractor:   ExtractorID,
	}
	if candidate.Description == "" {
		return domain.LineCandidate{}, false
	}

	if rawPrice := groups[lineRe.SubexpIndex("price")]; rawPrice != "" {
		if price, err := decimal.NewFromString(rawPrice); err == nil {
			candidate.UnitPrice = &price
		}
	}
	return candidate, true
}

func normalizeUOM(raw string) string {
	return domain.CanonicalUOM(raw)
}
