package app

import (
	"context"

	"github.com/pgway/pgway/pkg/config"
	"github.com/pgway/pgway/pkg/plugin"
	"github.com/pgway/pgway/pkg/waylog"
	"github.com/pgway/pgway/router/interpret"
)

// App owns the routing core of one router instance: the initialized
// plugin chain and its interpreter. The network frontend attaches to
// it through Interpreter().
type App struct {
	cfg    *config.WayConfig
	chain  *plugin.Chain
	interp *interpret.Interpreter
}

func NewApp(cfg *config.WayConfig, chain *plugin.Chain) *App {
	return &App{
		cfg:    cfg,
		chain:  chain,
		interp: interpret.New(chain, cfg),
	}
}

func (app *App) Interpreter() *interpret.Interpreter {
	return app.interp
}

func (app *App) Chain() *plugin.Chain {
	return app.chain
}

// Run initializes the chain and blocks until the context is canceled.
// Initialization is the single serialized phase preceding all routing
// calls; routing begins only after it returns.
func (app *App) Run(ctx context.Context) error {
	if err := app.chain.Initialize(); err != nil {
		return err
	}

	waylog.Zero.Info().
		Strs("chain", app.chain.Names()).
		Str("addr", app.cfg.Addr).
		Msg("pgway started")

	<-ctx.Done()
	waylog.Zero.Info().Msg("pgway shutting down")
	return nil
}
