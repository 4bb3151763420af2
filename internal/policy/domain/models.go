package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CalculationType string

var (
	Percentage CalculationType = "PERCENTAGE"
	Fixed      CalculationType = "FIXED"
	Tiered     CalculationType = "TIERED"
)

type ScopeType string

var (
	ScopeProductSpecific ScopeType = "PRODUCT_SPECIFIC"
	ScopePartnerSpecific ScopeType = "PARTNER_SPECIFIC"
	ScopeSupplier        ScopeType = "SUPPLIER"
	ScopeDefault         ScopeType = "DEFAULT"
)

type RuleStatus string

var (
	StatusActive   RuleStatus = "ACTIVE"
	StatusInactive RuleStatus = "INACTIVE"
)

// TieredRate is one row of a threshold-keyed rate table. The rate applies
// to order amounts at or above the threshold, up to the next tier.
type TieredRate struct {
	Threshold decimal.Decimal `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

type TieredRates []TieredRate

// CommissionRule is a stored commission policy. Edits are in place; the
// audit trail lives in the snapshot embedded in each transaction, not here.
type CommissionRule struct {
	ID              snowflake.ID     `json:"id" gorm:"primaryKey"`
	Code            string           `json:"code" gorm:"type:text;not null"`
	CalculationType CalculationType  `json:"calculation_type" gorm:"type:text;not null"`
	Rate            *decimal.Decimal `json:"rate,omitempty" gorm:"type:numeric"`
	FixedAmount     *decimal.Decimal `json:"fixed_amount,omitempty" gorm:"type:numeric"`
	TieredRates     TieredRates      `json:"tiered_rates,omitempty" gorm:"type:jsonb;serializer:json"`
	ScopeType       ScopeType        `json:"scope_type" gorm:"type:text;not null;index:idx_commission_rules_scope,priority:1"`
	ProductID       *string          `json:"product_id,omitempty" gorm:"type:text;index"`
	PartnerID       *string          `json:"partner_id,omitempty" gorm:"type:text;index"`
	SupplierID      *string          `json:"supplier_id,omitempty" gorm:"type:text;index"`
	Priority        int              `json:"priority" gorm:"not null;default:100"`
	ValidFrom       *time.Time       `json:"valid_from,omitempty"`
	ValidUntil      *time.Time       `json:"valid_until,omitempty"`
	Status          RuleStatus       `json:"status" gorm:"type:text;not null;default:ACTIVE;index:idx_commission_rules_scope,priority:2"`
	CreatedAt       time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CommissionRule) TableName() string { return "commission_rules" }

// ValidatePayload checks that the payload selected by CalculationType is
// present and well formed. Rules failing this never pass admission, but a
// row mutated out-of-band can still surface here at calculation time.
func (r *CommissionRule) ValidatePayload() error {
	switch r.CalculationType {
	case Percentage:
		if r.Rate == nil {
			return ErrInvalidRate
		}
		if r.Rate.IsNegative() {
			return ErrInvalidRate
		}
	case Fixed:
		if r.FixedAmount == nil {
			return ErrInvalidFixedAmount
		}
		if r.FixedAmount.IsNegative() {
			return ErrInvalidFixedAmount
		}
	case Tiered:
		if len(r.TieredRates) == 0 {
			return ErrInvalidTieredRates
		}
		for _, tier := range r.TieredRates {
			if tier.Threshold.IsNegative() || tier.Rate.IsNegative() {
				return ErrInvalidTieredRates
			}
		}
	default:
		return ErrInvalidCalculationType
	}
	return nil
}

// ScopeID returns the scoping identifier required by the rule's scope type.
func (r *CommissionRule) ScopeID() *string {
	switch r.ScopeType {
	case ScopeProductSpecific:
		return r.ProductID
	case ScopePartnerSpecific:
		return r.PartnerID
	case ScopeSupplier:
		return r.SupplierID
	default:
		return nil
	}
}
