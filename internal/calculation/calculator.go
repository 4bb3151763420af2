package calculation

import (
	"sort"

	"github.com/shopspring/decimal"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
)

var hundred = decimal.NewFromInt(100)

// Result is one calculation outcome. Rate carries the percentage actually
// applied (the rule rate or the selected tier rate), nil for fixed amounts
// and for the defensive zero path.
type Result struct {
	Amount decimal.Decimal
	Rate   *decimal.Decimal
}

// Calculate maps (order amount, rule) to a commission amount. Pure and
// deterministic; malformed rule payloads degrade to zero rather than fail,
// so one bad rule cannot block transaction creation.
func Calculate(orderAmount decimal.Decimal, rule *policydomain.CommissionRule) Result {
	switch rule.CalculationType {
	case policydomain.Percentage:
		if rule.Rate == nil {
			return Result{Amount: decimal.Zero}
		}
		rate := *rule.Rate
		return Result{
			Amount: orderAmount.Mul(rate).Div(hundred),
			Rate:   &rate,
		}

	case policydomain.Fixed:
		if rule.FixedAmount == nil {
			return Result{Amount: decimal.Zero}
		}
		return Result{Amount: *rule.FixedAmount}

	case policydomain.Tiered:
		return calculateTiered(orderAmount, rule.TieredRates)

	default:
		return Result{Amount: decimal.Zero}
	}
}

func calculateTiered(orderAmount decimal.Decimal, tiers policydomain.TieredRates) Result {
	if len(tiers) == 0 {
		return Result{Amount: decimal.Zero}
	}

	sorted := make(policydomain.TieredRates, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold.LessThan(sorted[j].Threshold)
	})

	// Highest threshold not exceeding the order amount wins.
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Threshold.LessThanOrEqual(orderAmount) {
			rate := sorted[i].Rate
			return Result{
				Amount: orderAmount.Mul(rate).Div(hundred),
				Rate:   &rate,
			}
		}
	}

	// Order amount below every threshold.
	return Result{Amount: decimal.Zero}
}
