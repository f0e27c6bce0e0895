package usecase

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/krittawat/order-register/internal/core/domain"
)

// RuleContext is everything a validation rule may inspect for one line.
// Match, Entry, and Customer are nil when the corresponding lookup produced
// nothing; rules must fail closed on missing data they depend on.
type RuleContext struct {
	Candidate domain.LineCandidate
	Match     *domain.SKUMatch
	Entry     *domain.CatalogEntry
	Customer  *domain.Customer
}

// Rule is an independent, pure predicate producing at most one result.
type Rule struct {
	Name     string
	Evaluate func(RuleContext) domain.ValidationResult
}

// RuleEngine evaluates the full rule set per line without short-circuiting,
// so every issue is visible in one pass. A rule that panics on malformed
// catalog or customer data is treated as failing with block severity.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

func NewRuleEngine(logger *slog.Logger, rules ...Rule) *RuleEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleEngine{rules: rules, logger: logger}
}

func (e *RuleEngine) Validate(rctx RuleContext) []domain.ValidationResult {
	out := make([]domain.ValidationResult, 0, len(e.rules))
	for _, rule := range e.rules {
		out = append(out, e.evaluateOne(rule, rctx))
	}
	return out
}

func (e *RuleEngine) evaluateOne(rule Rule, rctx RuleContext) (result domain.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule_evaluation_panic", "rule", rule.Name, "panic", fmt.Sprint(r))
			result = domain.ValidationResult{
				Rule:     rule.Name,
				Passed:   false,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("rule evaluation error: %v", r),
			}
		}
	}()
	return rule.Evaluate(rctx)
}

// DefaultRules is the required rule set: catalog match presence, UOM
// legality, price band, and customer standing.
func DefaultRules(priceWarnTolerance decimal.Decimal) []Rule {
	if priceWarnTolerance.LessThanOrEqual(decimal.Zero) {
		priceWarnTolerance = decimal.NewFromFloat(0.2)
	}
	return []Rule{
		{Name: "catalog_match", Evaluate: ruleCatalogMatch},
		{Name: "uom_permitted", Evaluate: ruleUOMPermitted},
		{Name: "price_band", Evaluate: rulePriceBand(priceWarnTolerance)},
		{Name: "customer_standing", Evaluate: ruleCustomerStanding},
	}
}

func ruleCatalogMatch(rctx RuleContext) domain.ValidationResult {
	if rctx.Match == nil {
		return domain.ValidationResult{
			Rule:     "catalog_match",
			Passed:   false,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("no catalog match for %q", rctx.Candidate.Description),
		}
	}
	return domain.ValidationResult{Rule: "catalog_match", Passed: true}
}

func ruleUOMPermitted(rctx RuleContext) domain.ValidationResult {
	if rctx.Match == nil || rctx.Candidate.UOM == "" {
		return domain.ValidationResult{Rule: "uom_permitted", Passed: true}
	}
	if rctx.Entry == nil {
		return domain.ValidationResult{
			Rule:     "uom_permitted",
			Passed:   false,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("matched sku %s missing from catalog", rctx.Match.SKUID),
		}
	}
	if !rctx.Entry.PermitsUOM(rctx.Candidate.UOM) {
		return domain.ValidationResult{
			Rule:     "uom_permitted",
			Passed:   false,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("uom %q not permitted for sku %s", rctx.Candidate.UOM, rctx.Entry.SKUID),
		}
	}
	return domain.ValidationResult{Rule: "uom_permitted", Passed: true}
}

func rulePriceBand(warnTolerance decimal.Decimal) func(RuleContext) domain.ValidationResult {
	return func(rctx RuleContext) domain.ValidationResult {
		if rctx.Match == nil || rctx.Entry == nil || rctx.Candidate.UnitPrice == nil {
			return domain.ValidationResult{Rule: "price_band", Passed: true}
		}
		price := *rctx.Candidate.UnitPrice
		minPrice, maxPrice := rctx.Entry.PriceMin, rctx.Entry.PriceMax
		if price.GreaterThanOrEqual(minPrice) && price.LessThanOrEqual(maxPrice) {
			return domain.ValidationResult{Rule: "price_band", Passed: true}
		}

		var deviation decimal.Decimal
		switch {
		case price.LessThan(minPrice) && minPrice.IsPositive():
			deviation = minPrice.Sub(price).Div(minPrice)
		case price.GreaterThan(maxPrice) && maxPrice.IsPositive():
			deviation = price.Sub(maxPrice).Div(maxPrice)
		default:
			// Degenerate band; anything outside it is a hard failure.
			deviation = decimal.NewFromInt(1)
		}

		severity := domain.SeverityBlock
		if deviation.LessThan(warnTolerance) {
			severity = domain.SeverityWarn
		}
		return domain.ValidationResult{
			Rule:     "price_band",
			Passed:   false,
			Severity: severity,
			Message: fmt.Sprintf("unit price %s outside band [%s, %s] for sku %s",
				price.String(), minPrice.String(), maxPrice.String(), rctx.Entry.SKUID),
		}
	}
}

func ruleCustomerStanding(rctx RuleContext) domain.ValidationResult {
	if rctx.Customer == nil {
		return domain.ValidationResult{
			Rule:     "customer_standing",
			Passed:   false,
			Severity: domain.SeverityBlock,
			Message:  "customer record unavailable",
		}
	}
	if rctx.Customer.OrdersBlocked {
		msg := "customer is blocked for new orders"
		if rctx.Customer.BlockReason != "" {
			msg = fmt.Sprintf("%s: %s", msg, rctx.Customer.BlockReason)
		}
		return domain.ValidationResult{
			Rule:     "customer_standing",
			Passed:   false,
			Severity: domain.SeverityBlock,
			Message:  msg,
		}
	}
	return domain.ValidationResult{Rule: "customer_standing", Passed: true}
}
