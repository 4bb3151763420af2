package events

import (
	"context"

	eventsdomain "github.com/smallbiznis/comiso/internal/events/domain"
	"github.com/smallbiznis/comiso/internal/events/service"
	"github.com/smallbiznis/comiso/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("events.service",
	fx.Provide(repository.ProvideStore[eventsdomain.CommissionEvent]),
	fx.Provide(service.New),
	fx.Provide(service.ProvidePublisher),
	fx.Invoke(registerHooks),
)

func registerHooks(lc fx.Lifecycle, s *service.Service) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.Run()
			return nil
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}
