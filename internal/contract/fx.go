package contract

import (
	"github.com/smallbiznis/regalia/internal/contract/repository"
	"github.com/smallbiznis/regalia/internal/contract/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contract.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
