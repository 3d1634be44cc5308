package ledger

import (
	"github.com/smallbiznis/tallybridge/internal/ledger/repository"
	"github.com/smallbiznis/tallybridge/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
