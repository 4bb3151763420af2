package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	OrderID    string
	ProductID  string
	PartnerID  string
	SupplierID string
	Unsettled  bool
	Limit      int
	AfterID    snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, trx *CommissionTransaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CommissionTransaction, error)
	FindByOrderRelayID(ctx context.Context, db *gorm.DB, orderRelayID string) (*CommissionTransaction, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]CommissionTransaction, error)
}
