package trip

import (
	"github.com/openhaul/tripbook/internal/trip/repository"
	"github.com/openhaul/tripbook/internal/trip/service"
	"go.uber.org/fx"
)

var Module = fx.Module("trip.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
