package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comiso/internal/calculation"
)

// CommissionTransaction is the persisted outcome of one resolution and
// calculation cycle for one order line item. Rows are immutable within this
// engine; only the external settlement subsystem stamps SettlementBatchID.
type CommissionTransaction struct {
	ID                 snowflake.ID          `json:"id" gorm:"primaryKey"`
	OrderRelayID       string                `json:"order_relay_id" gorm:"type:text;not null;uniqueIndex:ux_commission_transactions_order_relay"`
	OrderID            string                `json:"order_id" gorm:"type:text;not null;index"`
	OrderItemID        string                `json:"order_item_id" gorm:"type:text;not null"`
	ProductID          string                `json:"product_id" gorm:"type:text;index"`
	PartnerID          string                `json:"partner_id" gorm:"type:text;index"`
	SupplierID         string                `json:"supplier_id" gorm:"type:text;index"`
	CommissionRuleID   *snowflake.ID         `json:"commission_rule_id,omitempty" gorm:"index"`
	OrderAmount        decimal.Decimal       `json:"order_amount" gorm:"type:numeric;not null"`
	CommissionAmount   decimal.Decimal       `json:"commission_amount" gorm:"type:numeric;not null"`
	AppliedRate        *decimal.Decimal      `json:"applied_rate,omitempty" gorm:"type:numeric"`
	CalculationDetails *calculation.Snapshot `json:"calculation_details,omitempty" gorm:"type:jsonb;serializer:json"`
	SettlementBatchID  *string               `json:"settlement_batch_id,omitempty" gorm:"type:text;index"`
	CreatedAt          time.Time             `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CommissionTransaction) TableName() string { return "commission_transactions" }
