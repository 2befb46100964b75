package coupon

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type RuleKind string

const (
	// RulePercent discounts a fraction of the current subtotal.
	RulePercent RuleKind = "percent"
	// RuleFreeShipping discounts the current shipping fee.
	RuleFreeShipping RuleKind = "freeship"
)

type Rule struct {
	Kind RuleKind
	Rate decimal.Decimal
}

// Outcome is the result of resolving a code against the current totals.
// A rejected code has Applied=false and a zero amount; it never changes
// the totals.
type Outcome struct {
	Applied bool            `json:"applied"`
	Code    string          `json:"code,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

// Resolver maps coupon codes to discount rules. The table is injected at
// construction; the contract (code + current totals -> outcome) does not
// change when the table moves elsewhere.
type Resolver struct {
	rules map[string]Rule
}

func NewResolver(rules map[string]Rule) *Resolver {
	return &Resolver{rules: rules}
}

func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"WELCOME10": {Kind: RulePercent, Rate: decimal.RequireFromString("0.10")},
		"FREESHIP":  {Kind: RuleFreeShipping},
	}
}

// ParseRules reads a rule table from its config form, e.g.
// "WELCOME10:percent:0.10,FREESHIP:freeship".
func ParseRules(raw string) (map[string]Rule, error) {
	rules := make(map[string]Rule)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		code := strings.ToUpper(strings.TrimSpace(parts[0]))
		if code == "" {
			return nil, fmt.Errorf("coupon rule %q: missing code", entry)
		}
		if len(parts) < 2 {
			return nil, fmt.Errorf("coupon rule %q: missing kind", entry)
		}
		switch RuleKind(parts[1]) {
		case RuleFreeShipping:
			rules[code] = Rule{Kind: RuleFreeShipping}
		case RulePercent:
			if len(parts) != 3 {
				return nil, fmt.Errorf("coupon rule %q: percent rules need a rate", entry)
			}
			rate, err := decimal.NewFromString(parts[2])
			if err != nil {
				return nil, fmt.Errorf("coupon rule %q: bad rate: %w", entry, err)
			}
			rules[code] = Rule{Kind: RulePercent, Rate: rate}
		default:
			return nil, fmt.Errorf("coupon rule %q: unknown kind %q", entry, parts[1])
		}
	}
	return rules, nil
}

// Resolve matches the code (trimmed, case-insensitive) against the rule
// table and prices the discount from the current totals.
func (r *Resolver) Resolve(code string, totals domain.Totals) Outcome {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	rule, ok := r.rules[normalized]
	if normalized == "" || !ok {
		return Outcome{Applied: false, Amount: decimal.Zero}
	}

	var amount decimal.Decimal
	switch rule.Kind {
	case RulePercent:
		amount = totals.Subtotal.Mul(rule.Rate)
	case RuleFreeShipping:
		amount = totals.Shipping
	}
	return Outcome{Applied: true, Code: normalized, Amount: amount}
}
