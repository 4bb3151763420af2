package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comiso/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

type CreateRequest struct {
	Code            string           `json:"code"`
	CalculationType CalculationType  `json:"calculation_type"`
	Rate            *decimal.Decimal `json:"rate"`
	FixedAmount     *decimal.Decimal `json:"fixed_amount"`
	TieredRates     TieredRates      `json:"tiered_rates"`
	ScopeType       ScopeType        `json:"scope_type"`
	ProductID       *string          `json:"product_id"`
	PartnerID       *string          `json:"partner_id"`
	SupplierID      *string          `json:"supplier_id"`
	Priority        *int             `json:"priority"`
	ValidFrom       *time.Time       `json:"valid_from"`
	ValidUntil      *time.Time       `json:"valid_until"`
	Status          *RuleStatus      `json:"status"`
}

// UpdateRequest mutates only the fields present. Calculation payload fields
// are revalidated against the (possibly updated) calculation type.
type UpdateRequest struct {
	Code            *string          `json:"code"`
	CalculationType *CalculationType `json:"calculation_type"`
	Rate            *decimal.Decimal `json:"rate"`
	FixedAmount     *decimal.Decimal `json:"fixed_amount"`
	TieredRates     TieredRates      `json:"tiered_rates"`
	Priority        *int             `json:"priority"`
	ValidFrom       *time.Time       `json:"valid_from"`
	ValidUntil      *time.Time       `json:"valid_until"`
	Status          *RuleStatus      `json:"status"`
}

type ListRequest struct {
	pagination.Pagination
	Status    RuleStatus
	ScopeType ScopeType
}

type ListResponse struct {
	pagination.PageInfo
	Policies []Response `json:"policies"`
}

type Response struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	CalculationType CalculationType  `json:"calculation_type"`
	Rate            *decimal.Decimal `json:"rate,omitempty"`
	FixedAmount     *decimal.Decimal `json:"fixed_amount,omitempty"`
	TieredRates     TieredRates      `json:"tiered_rates,omitempty"`
	ScopeType       ScopeType        `json:"scope_type"`
	ProductID       *string          `json:"product_id,omitempty"`
	PartnerID       *string          `json:"partner_id,omitempty"`
	SupplierID      *string          `json:"supplier_id,omitempty"`
	Priority        int              `json:"priority"`
	ValidFrom       *time.Time       `json:"valid_from,omitempty"`
	ValidUntil      *time.Time       `json:"valid_until,omitempty"`
	Status          RuleStatus       `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

var (
	ErrInvalidCode            = errors.New("invalid_code")
	ErrInvalidCalculationType = errors.New("invalid_calculation_type")
	ErrInvalidRate            = errors.New("invalid_rate")
	ErrInvalidFixedAmount     = errors.New("invalid_fixed_amount")
	ErrInvalidTieredRates     = errors.New("invalid_tiered_rates")
	ErrInvalidScopeType       = errors.New("invalid_scope_type")
	ErrInvalidScopeID         = errors.New("invalid_scope_id")
	ErrInvalidValidity        = errors.New("invalid_validity_window")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidPageToken       = errors.New("invalid_page_token")
	ErrNotFound               = errors.New("not_found")
)
