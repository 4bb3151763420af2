package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	transactiondomain "github.com/smallbiznis/comiso/internal/transaction/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() transactiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, trx *transactiondomain.CommissionTransaction) error {
	return db.WithContext(ctx).Create(trx).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*transactiondomain.CommissionTransaction, error) {
	var trx transactiondomain.CommissionTransaction
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&trx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trx, nil
}

func (r *repo) FindByOrderRelayID(ctx context.Context, db *gorm.DB, orderRelayID string) (*transactiondomain.CommissionTransaction, error) {
	var trx transactiondomain.CommissionTransaction
	err := db.WithContext(ctx).
		Where("order_relay_id = ?", orderRelayID).
		First(&trx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trx, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter transactiondomain.ListFilter) ([]transactiondomain.CommissionTransaction, error) {
	stmt := db.WithContext(ctx).Model(&transactiondomain.CommissionTransaction{})
	if filter.OrderID != "" {
		stmt = stmt.Where("order_id = ?", filter.OrderID)
	}
	if filter.ProductID != "" {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if filter.PartnerID != "" {
		stmt = stmt.Where("partner_id = ?", filter.PartnerID)
	}
	if filter.SupplierID != "" {
		stmt = stmt.Where("supplier_id = ?", filter.SupplierID)
	}
	if filter.Unsettled {
		stmt = stmt.Where("settlement_batch_id IS NULL")
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var trxs []transactiondomain.CommissionTransaction
	err := stmt.Order("id ASC").Find(&trxs).Error
	if err != nil {
		return nil, err
	}
	return trxs, nil
}
