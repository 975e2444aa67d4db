package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// ToleranceConfig holds configuration for tolerance inference
type ToleranceConfig struct {
	// defaults maps currency to default tolerance (supports "*" wildcard)
	defaults map[string]decimal.Decimal
	// multiplier is applied to inferred tolerance (default 0.5)
	multiplier decimal.Decimal
	// inferFromCost includes costs/prices in tolerance inference
	inferFromCost bool
}

// NewToleranceConfig creates a default tolerance configuration: no default
// tolerance and a 0.5 multiplier.
func NewToleranceConfig() *ToleranceConfig {
	return &ToleranceConfig{
		defaults:   map[string]decimal.Decimal{},
		multiplier: decimal.NewFromFloat(0.5),
	}
}

// SetDefault sets the default tolerance of currency ("*" for any currency).
func (c *ToleranceConfig) SetDefault(currency string, tolerance decimal.Decimal) {
	c.defaults[currency] = tolerance
}

// Multiplier returns the inferred tolerance multiplier.
func (c *ToleranceConfig) Multiplier() decimal.Decimal {
	return c.multiplier
}

// parseToleranceDefault parses "CURRENCY:TOLERANCE" or "*:TOLERANCE".
func (c *ToleranceConfig) parseToleranceDefault(val string) error {
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid inferred_tolerance_default format %q, expected CURRENCY:TOLERANCE", val)
	}

	tolerance, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return fmt.Errorf("invalid tolerance value in %q: %w", val, err)
	}

	c.defaults[strings.TrimSpace(parts[0])] = tolerance
	return nil
}

// Tolerances maps currencies to the largest difference considered zero.
type Tolerances struct {
	byCurrency map[string]decimal.Decimal
	fallback   decimal.Decimal
}

// Get returns the tolerance for currency.
func (t Tolerances) Get(currency string) decimal.Decimal {
	if tol, ok := t.byCurrency[currency]; ok {
		return tol
	}
	return t.fallback
}

// UniformTolerances applies the same tolerance to every currency.
func UniformTolerances(tolerance decimal.Decimal) Tolerances {
	return Tolerances{fallback: tolerance}
}

// InferTolerances calculates the tolerances of a transaction from the
// precision of its postings. For every posting whose number has decimals,
// 10^exponent * multiplier is a candidate; the largest candidate per currency
// wins. Interpolated postings are skipped. Currencies without a candidate use
// the configured defaults.
func InferTolerances(postings []*ast.Posting, config *ToleranceConfig) Tolerances {
	if config == nil {
		config = NewToleranceConfig()
	}

	tolerances := Tolerances{byCurrency: make(map[string]decimal.Decimal, len(config.defaults))}
	for currency, tol := range config.defaults {
		if currency == "*" {
			tolerances.fallback = tol
			continue
		}
		tolerances.byCurrency[currency] = tol
	}

	costTolerances := make(map[string]decimal.Decimal)

	for _, posting := range postings {
		if posting.Inferred || posting.Amount == nil {
			continue
		}
		units, err := ParseAmount(posting.Amount)
		if err != nil {
			continue
		}

		exp := units.Exponent()
		if exp >= 0 {
			continue
		}

		tolerance := decimal.New(1, exp).Mul(config.multiplier)
		raise(tolerances.byCurrency, posting.Amount.Currency, tolerance)

		if !config.inferFromCost {
			continue
		}
		if posting.Cost != nil && posting.Cost.Amount != nil {
			if number, err := ParseAmount(posting.Cost.Amount); err == nil {
				costTolerances[posting.Cost.Amount.Currency] = costTolerances[posting.Cost.Amount.Currency].Add(tolerance.Mul(number.Abs()))
			}
		} else if posting.Price != nil && !posting.PriceTotal {
			if number, err := ParseAmount(posting.Price); err == nil {
				costTolerances[posting.Price.Currency] = costTolerances[posting.Price.Currency].Add(tolerance.Mul(number.Abs()))
			}
		}
	}

	for currency, tol := range costTolerances {
		raise(tolerances.byCurrency, currency, tol)
	}

	return tolerances
}

func raise(m map[string]decimal.Decimal, currency string, tolerance decimal.Decimal) {
	if current, ok := m[currency]; !ok || tolerance.GreaterThan(current) {
		m[currency] = tolerance
	}
}

// BalanceTolerance returns the tolerance of a balance assertion: the explicit
// one if given, otherwise twice the multiplier at the precision of the amount.
func BalanceTolerance(b *ast.Balance, config *ToleranceConfig) (decimal.Decimal, error) {
	if b.Tolerance != "" {
		tol, err := decimal.NewFromString(b.Tolerance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid balance tolerance %q: %w", b.Tolerance, err)
		}
		return tol, nil
	}

	number, err := ParseAmount(b.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	if exp := number.Exponent(); exp < 0 {
		return decimal.New(1, exp).Mul(config.multiplier).Mul(decimal.NewFromInt(2)), nil
	}
	return decimal.Zero, nil
}

// AmountEqual checks if two amounts are equal within tolerance
func AmountEqual(a, b decimal.Decimal, tolerance decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(tolerance)
}
