package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comiso/pkg/db/pagination"
)

var (
	ErrInvalidOrderRelay   = errors.New("invalid_order_relay_id")
	ErrInvalidOrderAmount  = errors.New("invalid_order_amount")
	ErrDuplicateOrderRelay = errors.New("duplicate_order_relay_id")
	ErrInvalidID           = errors.New("invalid_transaction_id")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrNotFound            = errors.New("transaction_not_found")
)

type CreateRequest struct {
	OrderRelayID string          `json:"order_relay_id" binding:"required"`
	OrderID      string          `json:"order_id"`
	OrderItemID  string          `json:"order_item_id"`
	ProductID    string          `json:"product_id"`
	PartnerID    string          `json:"partner_id"`
	SupplierID   string          `json:"supplier_id"`
	OrderAmount  decimal.Decimal `json:"order_amount"`
	AsOf         *time.Time      `json:"as_of,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	OrderID    string `form:"order_id"`
	ProductID  string `form:"product_id"`
	PartnerID  string `form:"partner_id"`
	SupplierID string `form:"supplier_id"`
	Unsettled  bool   `form:"unsettled"`
}

type ListResponse struct {
	pagination.PageInfo
	Transactions []CommissionTransaction `json:"transactions"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CommissionTransaction, error)
	Get(ctx context.Context, id string) (*CommissionTransaction, error)
	GetByOrderRelay(ctx context.Context, orderRelayID string) (*CommissionTransaction, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}
