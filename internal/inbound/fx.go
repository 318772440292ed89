package inbound

import (
	"github.com/smallbiznis/regalia/internal/inbound/repository"
	"github.com/smallbiznis/regalia/internal/inbound/service"
	"go.uber.org/fx"
)

var Module = fx.Module("inbound.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
