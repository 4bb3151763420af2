package calculation

import (
	"time"

	"github.com/shopspring/decimal"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	resolutiondomain "github.com/smallbiznis/comiso/internal/resolution/domain"
)

// Snapshot freezes the calculation-relevant fields of a resolved rule plus
// the resolution metadata. It is embedded in the transaction record and is
// the only thing retained for audit; later edits or deletion of the source
// rule have no effect on it.
type Snapshot struct {
	PolicyID                string                       `json:"policy_id"`
	PolicyCode              string                       `json:"policy_code"`
	CalculationType         policydomain.CalculationType `json:"calculation_type"`
	Rate                    *decimal.Decimal             `json:"rate,omitempty"`
	FixedAmount             *decimal.Decimal             `json:"fixed_amount,omitempty"`
	TieredRates             policydomain.TieredRates     `json:"tiered_rates,omitempty"`
	ResolutionLevel         resolutiondomain.Level       `json:"resolution_level"`
	ResolvedAt              time.Time                    `json:"resolved_at"`
	AppliedCommissionAmount decimal.Decimal              `json:"applied_commission_amount"`
}

// BuildSnapshot deep-copies the rule payload so the snapshot shares no
// memory with the source rule.
func BuildSnapshot(resolved *resolutiondomain.ResolvedPolicy, applied Result, at time.Time) *Snapshot {
	rule := resolved.Rule

	snap := &Snapshot{
		PolicyID:                rule.ID.String(),
		PolicyCode:              rule.Code,
		CalculationType:         rule.CalculationType,
		ResolutionLevel:         resolved.Level,
		ResolvedAt:              at.UTC(),
		AppliedCommissionAmount: applied.Amount,
	}

	if rule.Rate != nil {
		rate := *rule.Rate
		snap.Rate = &rate
	}
	if rule.FixedAmount != nil {
		fixed := *rule.FixedAmount
		snap.FixedAmount = &fixed
	}
	if len(rule.TieredRates) > 0 {
		snap.TieredRates = make(policydomain.TieredRates, len(rule.TieredRates))
		copy(snap.TieredRates, rule.TieredRates)
	}

	return snap
}
