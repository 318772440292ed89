package salesperiod

import (
	"github.com/smallbiznis/regalia/internal/salesperiod/repository"
	"github.com/smallbiznis/regalia/internal/salesperiod/service"
	"go.uber.org/fx"
)

var Module = fx.Module("salesperiod.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
