package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comiso/internal/clock"
	"github.com/smallbiznis/comiso/internal/config"
	eventsdomain "github.com/smallbiznis/comiso/internal/events/domain"
	eventsservice "github.com/smallbiznis/comiso/internal/events/service"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	policyrepository "github.com/smallbiznis/comiso/internal/policy/repository"
	resolutionservice "github.com/smallbiznis/comiso/internal/resolution/service"
	transactiondomain "github.com/smallbiznis/comiso/internal/transaction/domain"
	"github.com/smallbiznis/comiso/internal/transaction/repository"
	"github.com/smallbiznis/comiso/pkg/db/pagination"
	pkgrepository "github.com/smallbiznis/comiso/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clk   *clock.FakeClock
	svc   transactiondomain.Service
	event *eventsservice.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&policydomain.CommissionRule{},
		&transactiondomain.CommissionTransaction{},
		&eventsdomain.CommissionEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	policyRepo := policyrepository.Provide()
	resolver := resolutionservice.New(resolutionservice.Params{
		DB:    db,
		Log:   log,
		Repo:  policyRepo,
		Clock: clk,
	})

	events := eventsservice.New(eventsservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Cfg:   config.Config{},
		Store: pkgrepository.ProvideStore[eventsdomain.CommissionEvent](db),
	})

	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Resolver: resolver,
		Events:   events,
	})

	return &fixture{db: db, node: node, clk: clk, svc: svc, event: events}
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

func decPtr(t *testing.T, value string) *decimal.Decimal {
	t.Helper()
	d := dec(t, value)
	return &d
}

func (f *fixture) seedDefaultRule(t *testing.T, rate string) policydomain.CommissionRule {
	t.Helper()

	rule := policydomain.CommissionRule{
		ID:              f.node.Generate(),
		Code:            "default-rule",
		CalculationType: policydomain.Percentage,
		Rate:            decPtr(t, rate),
		ScopeType:       policydomain.ScopeDefault,
		Priority:        100,
		Status:          policydomain.StatusActive,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&rule).Error)
	return rule
}

func TestCreate_AppliesResolvedRule(t *testing.T) {
	f := setup(t)
	rule := f.seedDefaultRule(t, "10")

	trx, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "relay-1",
		OrderID:      "ord-1",
		OrderItemID:  "item-1",
		OrderAmount:  dec(t, "200000"),
	})
	require.NoError(t, err)

	assert.True(t, dec(t, "20000").Equal(trx.CommissionAmount), "got %s", trx.CommissionAmount)
	require.NotNil(t, trx.CommissionRuleID)
	assert.Equal(t, rule.ID, *trx.CommissionRuleID)
	require.NotNil(t, trx.AppliedRate)
	assert.True(t, dec(t, "10").Equal(*trx.AppliedRate))

	require.NotNil(t, trx.CalculationDetails)
	assert.Equal(t, rule.ID.String(), trx.CalculationDetails.PolicyID)
	assert.Equal(t, "default", string(trx.CalculationDetails.ResolutionLevel))
	assert.Equal(t, f.clk.Now(), trx.CalculationDetails.ResolvedAt)
}

func TestCreate_BackfillResolvesAtAsOfButStampsClockTime(t *testing.T) {
	f := setup(t)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	rule := policydomain.CommissionRule{
		ID:              f.node.Generate(),
		Code:            "january-promo",
		CalculationType: policydomain.Percentage,
		Rate:            decPtr(t, "10"),
		ScopeType:       policydomain.ScopeDefault,
		Priority:        100,
		Status:          policydomain.StatusActive,
		ValidFrom:       &from,
		ValidUntil:      &until,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&rule).Error)

	asOf := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	trx, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "relay-backfill",
		OrderAmount:  dec(t, "1000"),
		AsOf:         &asOf,
	})
	require.NoError(t, err)

	// The as-of date selects the rule; the snapshot still records when the
	// calculation actually ran.
	require.NotNil(t, trx.CommissionRuleID)
	assert.Equal(t, rule.ID, *trx.CommissionRuleID)
	require.NotNil(t, trx.CalculationDetails)
	assert.Equal(t, f.clk.Now(), trx.CalculationDetails.ResolvedAt)
}

func TestCreate_EmitsOutboxEventAtomically(t *testing.T) {
	f := setup(t)
	f.seedDefaultRule(t, "10")

	trx, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "relay-1",
		OrderAmount:  dec(t, "1000"),
	})
	require.NoError(t, err)

	var events []eventsdomain.CommissionEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, eventsdomain.EventCommissionApplied, events[0].EventType)
	assert.False(t, events[0].Published)
	assert.Equal(t, trx.ID.String(), events[0].Payload["transaction_id"])
	assert.Equal(t, "relay-1", events[0].Payload["order_relay_id"])
}

func TestCreate_NoMatchingRuleStillRecordsTransaction(t *testing.T) {
	f := setup(t)

	trx, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "relay-1",
		OrderAmount:  dec(t, "5000"),
	})
	require.NoError(t, err)

	assert.True(t, trx.CommissionAmount.IsZero())
	assert.Nil(t, trx.CommissionRuleID)
	assert.Nil(t, trx.AppliedRate)
	assert.Nil(t, trx.CalculationDetails)

	stored, err := f.svc.GetByOrderRelay(context.Background(), "relay-1")
	require.NoError(t, err)
	assert.Equal(t, trx.ID, stored.ID)
}

func TestCreate_DuplicateOrderRelay(t *testing.T) {
	f := setup(t)
	f.seedDefaultRule(t, "10")

	_, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "relay-1",
		OrderAmount:  dec(t, "1000"),
	})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "relay-1",
		OrderAmount:  dec(t, "1000"),
	})
	assert.ErrorIs(t, err, transactiondomain.ErrDuplicateOrderRelay)

	var count int64
	require.NoError(t, f.db.Model(&transactiondomain.CommissionTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "  ",
		OrderAmount:  dec(t, "1000"),
	})
	assert.ErrorIs(t, err, transactiondomain.ErrInvalidOrderRelay)

	_, err = f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "relay-1",
		OrderAmount:  dec(t, "-1"),
	})
	assert.ErrorIs(t, err, transactiondomain.ErrInvalidOrderAmount)
}

func TestCreate_SnapshotSurvivesRuleEditsAndDeletion(t *testing.T) {
	f := setup(t)
	rule := f.seedDefaultRule(t, "10")

	trx, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "relay-1",
		OrderAmount:  dec(t, "1000"),
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&policydomain.CommissionRule{}).
		Where("id = ?", rule.ID).
		Update("rate", dec(t, "99")).Error)
	require.NoError(t, f.db.Delete(&policydomain.CommissionRule{}, "id = ?", rule.ID).Error)

	stored, err := f.svc.Get(context.Background(), trx.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.CalculationDetails)
	require.NotNil(t, stored.CalculationDetails.Rate)
	assert.True(t, dec(t, "10").Equal(*stored.CalculationDetails.Rate))
	assert.True(t, dec(t, "100").Equal(stored.CommissionAmount))
}

func TestCreate_MalformedRuleDegradesToZero(t *testing.T) {
	f := setup(t)

	// A percentage rule that lost its rate out-of-band.
	rule := policydomain.CommissionRule{
		ID:              f.node.Generate(),
		Code:            "broken",
		CalculationType: policydomain.Percentage,
		ScopeType:       policydomain.ScopeDefault,
		Priority:        100,
		Status:          policydomain.StatusActive,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&rule).Error)

	trx, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "relay-1",
		OrderAmount:  dec(t, "1000"),
	})
	require.NoError(t, err)
	assert.True(t, trx.CommissionAmount.IsZero())
	require.NotNil(t, trx.CommissionRuleID)
	assert.Equal(t, rule.ID, *trx.CommissionRuleID)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	f := setup(t)
	f.seedDefaultRule(t, "10")

	for _, relay := range []string{"r-1", "r-2", "r-3"} {
		_, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
			OrderRelayID: relay,
			PartnerID:    "par-1",
			OrderAmount:  dec(t, "1000"),
		})
		require.NoError(t, err)
	}
	_, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "r-other",
		PartnerID:    "par-2",
		OrderAmount:  dec(t, "1000"),
	})
	require.NoError(t, err)

	page, err := f.svc.List(context.Background(), transactiondomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		PartnerID:  "par-1",
	})
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 2)
	assert.True(t, page.HasMore)

	rest, err := f.svc.List(context.Background(), transactiondomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 10, PageToken: page.NextPageToken},
		PartnerID:  "par-1",
	})
	require.NoError(t, err)
	assert.Len(t, rest.Transactions, 1)
	assert.False(t, rest.HasMore)
}

func TestList_UnsettledFilter(t *testing.T) {
	f := setup(t)
	f.seedDefaultRule(t, "10")

	settled, err := f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "r-settled",
		OrderAmount:  dec(t, "1000"),
	})
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), transactiondomain.CreateRequest{
		OrderRelayID: "r-open",
		OrderAmount:  dec(t, "1000"),
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&transactiondomain.CommissionTransaction{}).
		Where("id = ?", settled.ID).
		Update("settlement_batch_id", "batch-1").Error)

	resp, err := f.svc.List(context.Background(), transactiondomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 10},
		Unsettled:  true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "r-open", resp.Transactions[0].OrderRelayID)
}
