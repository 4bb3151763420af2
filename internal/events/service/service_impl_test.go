package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/comiso/internal/config"
	eventsdomain "github.com/smallbiznis/comiso/internal/events/domain"
	pkgrepository "github.com/smallbiznis/comiso/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&eventsdomain.CommissionEvent{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   config.Config{},
		Store: pkgrepository.ProvideStore[eventsdomain.CommissionEvent](db),
	})
	return db, svc
}

func strPtr(s string) *string { return &s }

func TestEmit_DeduplicatesByKey(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	payload := map[string]any{"order_relay_id": "relay-1"}
	require.NoError(t, svc.Emit(ctx, db, eventsdomain.EventCommissionApplied, strPtr("relay-1"), payload))
	require.NoError(t, svc.Emit(ctx, db, eventsdomain.EventCommissionApplied, strPtr("relay-1"), payload))

	var count int64
	require.NoError(t, db.Model(&eventsdomain.CommissionEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDispatchPending_DeliversAndMarksPublished(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	var seen []eventsdomain.CommissionEvent
	svc.Subscribe(eventsdomain.EventCommissionApplied, func(_ context.Context, e eventsdomain.CommissionEvent) error {
		seen = append(seen, e)
		return nil
	})

	require.NoError(t, svc.Emit(ctx, db, eventsdomain.EventCommissionApplied, strPtr("relay-1"), map[string]any{"order_relay_id": "relay-1"}))
	require.NoError(t, svc.DispatchPending(ctx))

	require.Len(t, seen, 1)
	assert.Equal(t, "relay-1", seen[0].Payload["order_relay_id"])

	var stored eventsdomain.CommissionEvent
	require.NoError(t, db.First(&stored).Error)
	assert.True(t, stored.Published)
	require.NotNil(t, stored.PublishedAt)

	// A second pass finds nothing pending and must not redeliver.
	require.NoError(t, svc.DispatchPending(ctx))
	assert.Len(t, seen, 1)
}

func TestDispatchPending_ListenerFailureRetries(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	calls := 0
	svc.Subscribe(eventsdomain.EventCommissionApplied, func(context.Context, eventsdomain.CommissionEvent) error {
		calls++
		if calls == 1 {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	require.NoError(t, svc.Emit(ctx, db, eventsdomain.EventCommissionApplied, nil, map[string]any{"order_relay_id": "relay-1"}))

	require.NoError(t, svc.DispatchPending(ctx))
	var stored eventsdomain.CommissionEvent
	require.NoError(t, db.First(&stored).Error)
	assert.False(t, stored.Published)

	require.NoError(t, svc.DispatchPending(ctx))
	require.NoError(t, db.First(&stored).Error)
	assert.True(t, stored.Published)
	assert.Equal(t, 2, calls)
}

func TestDispatchPending_IgnoresOtherEventTypes(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	delivered := 0
	svc.Subscribe("commission.reversed", func(context.Context, eventsdomain.CommissionEvent) error {
		delivered++
		return nil
	})

	require.NoError(t, svc.Emit(ctx, db, eventsdomain.EventCommissionApplied, nil, map[string]any{}))
	require.NoError(t, svc.DispatchPending(ctx))

	assert.Equal(t, 0, delivered)
	// Events without listeners still drain from the outbox.
	var stored eventsdomain.CommissionEvent
	require.NoError(t, db.First(&stored).Error)
	assert.True(t, stored.Published)
}
