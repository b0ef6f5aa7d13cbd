package audit

import (
	"github.com/openhaul/tripbook/internal/audit/repository"
	"github.com/openhaul/tripbook/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
