package royalty

import (
	"github.com/smallbiznis/regalia/internal/royalty/repository"
	"github.com/smallbiznis/regalia/internal/royalty/service"
	"go.uber.org/fx"
)

var Module = fx.Module("royalty.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
