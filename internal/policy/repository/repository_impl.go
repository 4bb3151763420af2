package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() policydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *policydomain.CommissionRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*policydomain.CommissionRule, error) {
	var rule policydomain.CommissionRule
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, rule *policydomain.CommissionRule) error {
	return db.WithContext(ctx).Save(rule).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&policydomain.CommissionRule{}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter policydomain.ListFilter) ([]policydomain.CommissionRule, error) {
	stmt := db.WithContext(ctx).Model(&policydomain.CommissionRule{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ScopeType != "" {
		stmt = stmt.Where("scope_type = ?", filter.ScopeType)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var rules []policydomain.CommissionRule
	err := stmt.Order("id ASC").Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) FindCandidate(ctx context.Context, db *gorm.DB, scope policydomain.ScopeType, scopeID string, asOf time.Time) (*policydomain.CommissionRule, error) {
	stmt := db.WithContext(ctx).
		Where("scope_type = ?", scope).
		Where("status = ?", policydomain.StatusActive).
		Where("valid_from IS NULL OR valid_from <= ?", asOf).
		Where("valid_until IS NULL OR valid_until >= ?", asOf)

	switch scope {
	case policydomain.ScopeProductSpecific:
		stmt = stmt.Where("product_id = ?", scopeID)
	case policydomain.ScopePartnerSpecific:
		stmt = stmt.Where("partner_id = ?", scopeID)
	case policydomain.ScopeSupplier:
		stmt = stmt.Where("supplier_id = ?", scopeID)
	case policydomain.ScopeDefault:
		// Global fallback carries no scoping id.
	}

	var rule policydomain.CommissionRule
	err := stmt.Order("priority ASC, created_at DESC").First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}
