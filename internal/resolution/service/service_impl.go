package service

import (
	"context"
	"time"

	"github.com/smallbiznis/comiso/internal/clock"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	resolutiondomain "github.com/smallbiznis/comiso/internal/resolution/domain"
	"github.com/smallbiznis/comiso/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// tier binds a resolution level to its scope type and the context field
// that scopes it. The slice order IS the precedence order; it is fixed and
// not configurable.
type tier struct {
	level   resolutiondomain.Level
	scope   policydomain.ScopeType
	scopeID func(rc resolutiondomain.Context) string
}

var tiers = []tier{
	{resolutiondomain.LevelProductSpecific, policydomain.ScopeProductSpecific, func(rc resolutiondomain.Context) string { return rc.ProductID }},
	{resolutiondomain.LevelPartnerSpecific, policydomain.ScopePartnerSpecific, func(rc resolutiondomain.Context) string { return rc.PartnerID }},
	{resolutiondomain.LevelSupplier, policydomain.ScopeSupplier, func(rc resolutiondomain.Context) string { return rc.SupplierID }},
	{resolutiondomain.LevelDefault, policydomain.ScopeDefault, func(resolutiondomain.Context) string { return "" }},
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    policydomain.Repository
	Clock   clock.Clock
	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    policydomain.Repository
	clock   clock.Clock
	metrics *telemetry.Metrics
}

func New(p Params) resolutiondomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("resolution.service"),
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Resolve(ctx context.Context, rc resolutiondomain.Context) (*resolutiondomain.ResolvedPolicy, error) {
	asOf := rc.AsOf
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}

	started := time.Now()
	for _, t := range tiers {
		scopeID := t.scopeID(rc)
		if t.scope != policydomain.ScopeDefault && scopeID == "" {
			continue
		}

		rule, err := s.repo.FindCandidate(ctx, s.db, t.scope, scopeID, asOf)
		if err != nil {
			return nil, err
		}
		if rule == nil {
			continue
		}

		elapsed := time.Since(started)
		s.metrics.ObserveResolution(string(t.level), elapsed)
		s.log.Debug("commission policy resolved",
			zap.String("rule_id", rule.ID.String()),
			zap.String("level", string(t.level)),
			zap.String("order_item_id", rc.OrderItemID),
			zap.Duration("took", elapsed),
		)

		return &resolutiondomain.ResolvedPolicy{
			Rule:           *rule,
			Level:          t.level,
			ResolutionTime: elapsed,
		}, nil
	}

	s.metrics.ObserveResolution("", time.Since(started))
	s.log.Debug("no commission policy matched",
		zap.String("order_item_id", rc.OrderItemID),
		zap.String("product_id", rc.ProductID),
		zap.String("partner_id", rc.PartnerID),
		zap.String("supplier_id", rc.SupplierID),
	)
	return nil, nil
}
