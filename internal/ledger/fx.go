package ledger

import (
	"github.com/openhaul/tripbook/internal/ledger/repository"
	"github.com/openhaul/tripbook/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
