package agent

import (
	"github.com/openhaul/tripbook/internal/agent/repository"
	"github.com/openhaul/tripbook/internal/agent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("agent.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
