package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types emitted by the engine.
const (
	EventCommissionApplied = "commission.applied"
)

// CommissionEvent captures outbox events for commission workflows. Rows are
// written in the same transaction as the state change they announce and
// published asynchronously by the dispatcher.
type CommissionEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	EventType   string            `gorm:"type:text;not null"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	DedupeKey   *string           `gorm:"type:text;uniqueIndex:ux_commission_event_dedupe"`
	Published   bool              `gorm:"not null;default:false;index"`
	PublishedAt *time.Time        `gorm:""`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CommissionEvent) TableName() string { return "commission_events" }

// Listener receives published events in-process. Registration replaces any
// compile-time dependency on a particular broker.
type Listener func(ctx context.Context, event CommissionEvent) error

type Publisher interface {
	// Emit appends an event to the outbox using the supplied transaction
	// handle so the event commits atomically with its state change.
	Emit(ctx context.Context, tx *gorm.DB, eventType string, dedupeKey *string, payload map[string]any) error

	// Subscribe registers an in-process listener for an event type.
	Subscribe(eventType string, l Listener)
}
