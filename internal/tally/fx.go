package tally

import (
	"github.com/smallbiznis/tallybridge/internal/clock"
	"github.com/smallbiznis/tallybridge/internal/config"
	"github.com/smallbiznis/tallybridge/internal/tally/message"
	"github.com/smallbiznis/tallybridge/internal/tally/response"
	"github.com/smallbiznis/tallybridge/internal/tally/transport"
	"go.uber.org/fx"
)

var Module = fx.Module("tally.gateway",
	fx.Provide(provideBuilder),
	fx.Provide(fx.Annotate(transport.New, fx.As(new(Transport)))),
	fx.Provide(response.NewMarkerClassifier),
	fx.Provide(New),
)

func provideBuilder(cfg config.Config, clk clock.Clock) *message.Builder {
	return message.NewBuilder(cfg.Tally.CompanyName, cfg.Tally.SalesAccount, clk)
}
