package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
)

// Level identifies which precedence tier produced a resolved rule.
type Level string

var (
	LevelProductSpecific Level = "product_specific"
	LevelPartnerSpecific Level = "partner_specific"
	LevelSupplier        Level = "supplier"
	LevelDefault         Level = "default"
)

// Context carries everything resolution needs for one order line item.
// It is an input value object and is never persisted.
type Context struct {
	OrderAmount decimal.Decimal
	ProductID   string
	SupplierID  string
	PartnerID   string
	AsOf        time.Time
	OrderID     string
	OrderItemID string
}

// ResolvedPolicy is the transient result of one resolution. It is consumed
// immediately by the calculator and snapshot builder.
type ResolvedPolicy struct {
	Rule           policydomain.CommissionRule
	Level          Level
	ResolutionTime time.Duration
}

type Service interface {
	// Resolve walks the precedence tiers and returns the single
	// highest-precedence active rule, or nil when no tier matches.
	// Store failures propagate; they never degrade to a nil result.
	Resolve(ctx context.Context, rc Context) (*ResolvedPolicy, error)
}
