package mapping

import (
	"github.com/smallbiznis/regalia/internal/mapping/repository"
	"github.com/smallbiznis/regalia/internal/mapping/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mapping.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
