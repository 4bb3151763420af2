package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comiso/internal/calculation"
	"github.com/smallbiznis/comiso/internal/clock"
	eventsdomain "github.com/smallbiznis/comiso/internal/events/domain"
	resolutiondomain "github.com/smallbiznis/comiso/internal/resolution/domain"
	transactiondomain "github.com/smallbiznis/comiso/internal/transaction/domain"
	"github.com/smallbiznis/comiso/pkg/db"
	"github.com/smallbiznis/comiso/pkg/db/pagination"
	"github.com/smallbiznis/comiso/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     transactiondomain.Repository
	Resolver resolutiondomain.Service
	Events   eventsdomain.Publisher
	Metrics  *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     transactiondomain.Repository
	resolver resolutiondomain.Service
	events   eventsdomain.Publisher
	metrics  *telemetry.Metrics
}

func New(p Params) transactiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("transaction.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		resolver: p.Resolver,
		events:   p.Events,
		metrics:  p.Metrics,
	}
}

// Create resolves the applicable rule for one order line item, calculates
// the commission, and persists the transaction together with its outbox
// event in a single database transaction. An unmatched resolution still
// produces a zero-commission row so every relayed order leaves a trace.
func (s *Service) Create(ctx context.Context, req transactiondomain.CreateRequest) (*transactiondomain.CommissionTransaction, error) {
	orderRelayID := strings.TrimSpace(req.OrderRelayID)
	if orderRelayID == "" {
		return nil, transactiondomain.ErrInvalidOrderRelay
	}
	if req.OrderAmount.IsNegative() {
		return nil, transactiondomain.ErrInvalidOrderAmount
	}

	asOf := s.clock.Now()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	resolved, err := s.resolver.Resolve(ctx, resolutiondomain.Context{
		OrderAmount: req.OrderAmount,
		ProductID:   strings.TrimSpace(req.ProductID),
		SupplierID:  strings.TrimSpace(req.SupplierID),
		PartnerID:   strings.TrimSpace(req.PartnerID),
		AsOf:        asOf,
		OrderID:     req.OrderID,
		OrderItemID: req.OrderItemID,
	})
	if err != nil {
		return nil, err
	}

	entity := &transactiondomain.CommissionTransaction{
		ID:               s.genID.Generate(),
		OrderRelayID:     orderRelayID,
		OrderID:          req.OrderID,
		OrderItemID:      req.OrderItemID,
		ProductID:        strings.TrimSpace(req.ProductID),
		PartnerID:        strings.TrimSpace(req.PartnerID),
		SupplierID:       strings.TrimSpace(req.SupplierID),
		OrderAmount:      req.OrderAmount,
		CommissionAmount: decimal.Zero,
		CreatedAt:        s.clock.Now(),
	}

	outcome := "unmatched"
	calcType := "none"
	if resolved != nil {
		if perr := resolved.Rule.ValidatePayload(); perr != nil {
			s.log.Warn("resolved rule carries a malformed payload, commission degrades to zero",
				zap.String("rule_id", resolved.Rule.ID.String()),
				zap.String("rule_code", resolved.Rule.Code),
				zap.Error(perr),
			)
		}

		result := calculation.Calculate(req.OrderAmount, &resolved.Rule)
		ruleID := resolved.Rule.ID
		entity.CommissionRuleID = &ruleID
		entity.CommissionAmount = result.Amount
		entity.AppliedRate = result.Rate
		entity.CalculationDetails = calculation.BuildSnapshot(resolved, result, s.clock.Now())

		outcome = "applied"
		calcType = string(resolved.Rule.CalculationType)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, entity); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, eventsdomain.EventCommissionApplied, &orderRelayID, eventPayload(entity))
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, transactiondomain.ErrDuplicateOrderRelay
		}
		return nil, err
	}

	amount, _ := entity.CommissionAmount.Float64()
	s.metrics.ObserveTransaction(outcome, calcType, amount)
	s.log.Info("commission transaction recorded",
		zap.String("transaction_id", entity.ID.String()),
		zap.String("order_relay_id", entity.OrderRelayID),
		zap.String("outcome", outcome),
		zap.String("commission_amount", entity.CommissionAmount.String()),
	)

	return entity, nil
}

func (s *Service) Get(ctx context.Context, id string) (*transactiondomain.CommissionTransaction, error) {
	trxID, err := parseID(id)
	if err != nil {
		return nil, transactiondomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, trxID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, transactiondomain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) GetByOrderRelay(ctx context.Context, orderRelayID string) (*transactiondomain.CommissionTransaction, error) {
	orderRelayID = strings.TrimSpace(orderRelayID)
	if orderRelayID == "" {
		return nil, transactiondomain.ErrInvalidOrderRelay
	}

	entity, err := s.repo.FindByOrderRelayID(ctx, s.db, orderRelayID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, transactiondomain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) List(ctx context.Context, req transactiondomain.ListRequest) (*transactiondomain.ListResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = 10
	}

	filter := transactiondomain.ListFilter{
		OrderID:    req.OrderID,
		ProductID:  req.ProductID,
		PartnerID:  req.PartnerID,
		SupplierID: req.SupplierID,
		Unsettled:  req.Unsettled,
		Limit:      limit + 1,
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, transactiondomain.ErrInvalidPageToken
		}
		afterID, err := parseID(cursor.ID)
		if err != nil {
			return nil, transactiondomain.ErrInvalidPageToken
		}
		filter.AfterID = afterID
	}

	trxs, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	hasMore := len(trxs) > limit
	if hasMore {
		trxs = trxs[:limit]
	}

	resp := &transactiondomain.ListResponse{Transactions: trxs}
	resp.HasMore = hasMore
	if hasMore && len(trxs) > 0 {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: trxs[len(trxs)-1].ID.String()})
		resp.NextPageToken = token
	}

	return resp, nil
}

func eventPayload(trx *transactiondomain.CommissionTransaction) map[string]any {
	payload := map[string]any{
		"transaction_id":    trx.ID.String(),
		"order_relay_id":    trx.OrderRelayID,
		"order_id":          trx.OrderID,
		"order_item_id":     trx.OrderItemID,
		"order_amount":      trx.OrderAmount.String(),
		"commission_amount": trx.CommissionAmount.String(),
	}
	if trx.CommissionRuleID != nil {
		payload["commission_rule_id"] = trx.CommissionRuleID.String()
	}
	if trx.CalculationDetails != nil {
		payload["resolution_level"] = string(trx.CalculationDetails.ResolutionLevel)
	}
	return payload
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
