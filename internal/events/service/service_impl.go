package service

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comiso/internal/config"
	eventsdomain "github.com/smallbiznis/comiso/internal/events/domain"
	"github.com/smallbiznis/comiso/pkg/db"
	"github.com/smallbiznis/comiso/pkg/db/option"
	"github.com/smallbiznis/comiso/pkg/repository"
	"github.com/smallbiznis/comiso/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Cfg     config.Config
	Store   repository.Repository[eventsdomain.CommissionEvent]
	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	cfg     config.OutboxConfig
	store   repository.Repository[eventsdomain.CommissionEvent]
	metrics *telemetry.Metrics

	mu        sync.RWMutex
	listeners map[string][]eventsdomain.Listener

	stop chan struct{}
	done chan struct{}
}

func New(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("events.service"),
		genID:     p.GenID,
		cfg:       p.Cfg.Outbox,
		store:     p.Store,
		metrics:   p.Metrics,
		listeners: make(map[string][]eventsdomain.Listener),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func ProvidePublisher(s *Service) eventsdomain.Publisher { return s }

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, eventType string, dedupeKey *string, payload map[string]any) error {
	event := eventsdomain.CommissionEvent{
		ID:        s.genID.Generate(),
		EventType: eventType,
		Payload:   datatypes.JSONMap(payload),
		DedupeKey: dedupeKey,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.WithTrx(tx).Create(ctx, &event); err != nil {
		// A replayed dedupe key means the event already exists; the
		// original row will be (or was) dispatched.
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) Subscribe(eventType string, l eventsdomain.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[eventType] = append(s.listeners[eventType], l)
}

// Run polls the outbox and fans pending events out to listeners until Stop.
func (s *Service) Run() {
	interval := time.Duration(s.cfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.DispatchPending(context.Background()); err != nil {
				s.log.Error("outbox dispatch failed", zap.Error(err))
			}
		}
	}
}

// Stop signals the dispatch loop and waits for it to drain.
func (s *Service) Stop() {
	close(s.stop)
	<-s.done
}

// DispatchPending delivers one batch of unpublished events. Listener errors
// leave the row unpublished so the next tick retries it.
func (s *Service) DispatchPending(ctx context.Context) error {
	batch := s.cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}

	pending, err := s.store.Find(ctx, &eventsdomain.CommissionEvent{},
		option.WithCondition("published = ?", false),
		option.WithOrder("created_at ASC"),
		option.WithLimit(batch),
	)
	if err != nil {
		s.metrics.ObserveOutboxDispatch("error")
		return err
	}

	var backlog int64
	if err := s.db.WithContext(ctx).
		Model(&eventsdomain.CommissionEvent{}).
		Where("published = ?", false).
		Count(&backlog).Error; err == nil {
		s.metrics.SetOutboxBacklog(float64(backlog))
	}

	if len(pending) == 0 {
		return nil
	}

	for _, event := range pending {
		if event == nil {
			continue
		}

		if err := s.deliver(ctx, *event); err != nil {
			s.log.Warn("event delivery failed, will retry",
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			s.metrics.ObserveOutboxDispatch("retry")
			continue
		}

		now := time.Now().UTC()
		err := s.store.Update(ctx, event.ID.String(), map[string]any{
			"published":    true,
			"published_at": now,
		})
		if err != nil {
			s.metrics.ObserveOutboxDispatch("error")
			return err
		}
		s.metrics.ObserveOutboxDispatch("ok")
	}

	return nil
}

func (s *Service) deliver(ctx context.Context, event eventsdomain.CommissionEvent) error {
	s.mu.RLock()
	listeners := s.listeners[event.EventType]
	s.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
