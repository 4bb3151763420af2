package resolution

import (
	"github.com/smallbiznis/comiso/internal/resolution/service"
	"go.uber.org/fx"
)

var Module = fx.Module("resolution.service",
	fx.Provide(service.New),
)
