package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pgway/pgway/pkg/config"
	"github.com/pgway/pgway/pkg/waylog"
	"github.com/pgway/pgway/plugins"
	"github.com/pgway/pgway/router/app"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "pgway run --config `path-to-config`",
	Short: "pgway",
	Long:  "pgway",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "/etc/pgway/config.yaml", "path to config file")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the router",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(cfgPath); err != nil {
			return errors.Wrap(err, "failed to load config")
		}
		cfg := config.Get()

		if err := waylog.UpdateZeroLogLevel(cfg.LogLevel); err != nil {
			return err
		}

		registry := plugins.DefaultRegistry()
		chain, err := plugins.BuildChain(registry, cfg.Plugins)
		if err != nil {
			return errors.Wrap(err, "failed to build plugin chain")
		}

		ctx, cancelCtx := context.WithCancel(context.Background())
		defer cancelCtx()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGHUP, syscall.SIGTERM)

		go func() {
			for {
				s := <-sigs
				waylog.Zero.Info().Str("signal", s.String()).Msg("got signal")

				switch s {
				case syscall.SIGHUP:
					// reread config file
					if err := config.Load(cfgPath); err != nil {
						waylog.Zero.Error().Err(err).Msg("config reload failed")
					}
				case syscall.SIGTERM:
					cancelCtx()
					return
				}
			}
		}()

		return app.NewApp(cfg, chain).Run(ctx)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		waylog.Zero.Fatal().Err(err).Msg("")
	}
}
