package dispute

import (
	"github.com/openhaul/tripbook/internal/dispute/repository"
	"github.com/openhaul/tripbook/internal/dispute/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dispute.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
