package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	"github.com/smallbiznis/comiso/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  policydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  policydomain.Repository
}

func New(p Params) policydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("policy.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req policydomain.CreateRequest) (*policydomain.Response, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, policydomain.ErrInvalidCode
	}

	status := policydomain.StatusActive
	if req.Status != nil {
		status = *req.Status
	}
	if status != policydomain.StatusActive && status != policydomain.StatusInactive {
		return nil, policydomain.ErrInvalidStatus
	}

	if req.ValidFrom != nil && req.ValidUntil != nil && req.ValidUntil.Before(*req.ValidFrom) {
		return nil, policydomain.ErrInvalidValidity
	}

	priority := 100
	if req.Priority != nil {
		priority = *req.Priority
	}

	now := time.Now().UTC()
	entity := &policydomain.CommissionRule{
		ID:              s.genID.Generate(),
		Code:            code,
		CalculationType: req.CalculationType,
		Rate:            req.Rate,
		FixedAmount:     req.FixedAmount,
		TieredRates:     req.TieredRates,
		ScopeType:       req.ScopeType,
		ProductID:       normalizeID(req.ProductID),
		PartnerID:       normalizeID(req.PartnerID),
		SupplierID:      normalizeID(req.SupplierID),
		Priority:        priority,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := validateScope(entity); err != nil {
		return nil, err
	}
	if err := entity.ValidatePayload(); err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, err
	}

	return toResponse(entity), nil
}

func (s *Service) Get(ctx context.Context, id string) (*policydomain.Response, error) {
	ruleID, err := parseID(id)
	if err != nil {
		return nil, policydomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, ruleID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, policydomain.ErrNotFound
	}

	return toResponse(entity), nil
}

func (s *Service) Update(ctx context.Context, id string, req policydomain.UpdateRequest) (*policydomain.Response, error) {
	ruleID, err := parseID(id)
	if err != nil {
		return nil, policydomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, ruleID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, policydomain.ErrNotFound
	}

	if req.Code != nil {
		code := strings.TrimSpace(*req.Code)
		if code == "" {
			return nil, policydomain.ErrInvalidCode
		}
		entity.Code = code
	}
	if req.CalculationType != nil {
		entity.CalculationType = *req.CalculationType
	}
	if req.Rate != nil {
		entity.Rate = req.Rate
	}
	if req.FixedAmount != nil {
		entity.FixedAmount = req.FixedAmount
	}
	if req.TieredRates != nil {
		entity.TieredRates = req.TieredRates
	}
	if req.Priority != nil {
		entity.Priority = *req.Priority
	}
	if req.ValidFrom != nil {
		entity.ValidFrom = req.ValidFrom
	}
	if req.ValidUntil != nil {
		entity.ValidUntil = req.ValidUntil
	}
	if req.Status != nil {
		if *req.Status != policydomain.StatusActive && *req.Status != policydomain.StatusInactive {
			return nil, policydomain.ErrInvalidStatus
		}
		entity.Status = *req.Status
	}

	if entity.ValidFrom != nil && entity.ValidUntil != nil && entity.ValidUntil.Before(*entity.ValidFrom) {
		return nil, policydomain.ErrInvalidValidity
	}
	if err := entity.ValidatePayload(); err != nil {
		return nil, err
	}

	entity.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, entity); err != nil {
		return nil, err
	}

	return toResponse(entity), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ruleID, err := parseID(id)
	if err != nil {
		return policydomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, ruleID)
	if err != nil {
		return err
	}
	if entity == nil {
		return policydomain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, ruleID)
}

func (s *Service) List(ctx context.Context, req policydomain.ListRequest) (*policydomain.ListResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = 10
	}

	filter := policydomain.ListFilter{
		Status:    req.Status,
		ScopeType: req.ScopeType,
		Limit:     limit + 1,
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, policydomain.ErrInvalidPageToken
		}
		afterID, err := parseID(cursor.ID)
		if err != nil {
			return nil, policydomain.ErrInvalidPageToken
		}
		filter.AfterID = afterID
	}

	rules, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	hasMore := len(rules) > limit
	if hasMore {
		rules = rules[:limit]
	}

	resp := &policydomain.ListResponse{
		Policies: make([]policydomain.Response, 0, len(rules)),
	}
	for i := range rules {
		resp.Policies = append(resp.Policies, *toResponse(&rules[i]))
	}
	resp.HasMore = hasMore
	if hasMore && len(rules) > 0 {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: rules[len(rules)-1].ID.String()})
		resp.NextPageToken = token
	}

	return resp, nil
}

func validateScope(rule *policydomain.CommissionRule) error {
	switch rule.ScopeType {
	case policydomain.ScopeProductSpecific:
		if rule.ProductID == nil {
			return policydomain.ErrInvalidScopeID
		}
	case policydomain.ScopePartnerSpecific:
		if rule.PartnerID == nil {
			return policydomain.ErrInvalidScopeID
		}
	case policydomain.ScopeSupplier:
		if rule.SupplierID == nil {
			return policydomain.ErrInvalidScopeID
		}
	case policydomain.ScopeDefault:
	default:
		return policydomain.ErrInvalidScopeType
	}
	return nil
}

func toResponse(rule *policydomain.CommissionRule) *policydomain.Response {
	return &policydomain.Response{
		ID:              rule.ID.String(),
		Code:            rule.Code,
		CalculationType: rule.CalculationType,
		Rate:            rule.Rate,
		FixedAmount:     rule.FixedAmount,
		TieredRates:     rule.TieredRates,
		ScopeType:       rule.ScopeType,
		ProductID:       rule.ProductID,
		PartnerID:       rule.PartnerID,
		SupplierID:      rule.SupplierID,
		Priority:        rule.Priority,
		ValidFrom:       rule.ValidFrom,
		ValidUntil:      rule.ValidUntil,
		Status:          rule.Status,
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}
}

func normalizeID(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
