package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status    RuleStatus
	ScopeType ScopeType
	Limit     int
	AfterID   snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *CommissionRule) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CommissionRule, error)
	Update(ctx context.Context, db *gorm.DB, rule *CommissionRule) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]CommissionRule, error)

	// FindCandidate returns the highest-precedence active rule within one
	// resolution tier: status ACTIVE, asOf inside the validity window,
	// ordered by priority ascending then created_at descending.
	FindCandidate(ctx context.Context, db *gorm.DB, scope ScopeType, scopeID string, asOf time.Time) (*CommissionRule, error)
}
