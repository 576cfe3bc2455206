package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	transferencias "github.com/Weatherlly/sr-transferencias"
	"github.com/Weatherlly/sr-transferencias/internal/cliconfig"
	"github.com/Weatherlly/sr-transferencias/pkg/log"
)

const longHelp = `Record pizza and soup transfers between stores.

Serves the registration form at / and a JSON API under /api/transferencias.
Each transfer is kept as its own JSON file in the data directory, so records
can be backed up, inspected or removed with ordinary file tools.

Configuration is read from $HOME/.sr-transferencias/config.toml, then from
TRANSFERENCIAS_* environment variables (PORT and IP are honoured too), then
from flags.`

var exampleUsage = strings.TrimSpace(`
  sr-transferencias --port 3000 --data-dir /var/lib/transferencias
  sr-transferencias --config ./config.toml --cors-origin https://lojas.example.com
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	bootLog, _ := log.NewZerologAdapter(os.Stderr, "info")

	root := &cobra.Command{
		Use:          "sr-transferencias",
		Short:        "Record inventory transfers between stores",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			} else if cfgPath != "" {
				return fmt.Errorf("config file %s not found", cfgPath)
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := log.NewZerologAdapter(os.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			logger.Info("configuration",
				log.String("addr", cfg.Address()),
				log.String("data_dir", cfg.DataDir),
				log.String("static_dir", cfg.StaticDir),
				log.String("timezone", cfg.Timezone),
				log.Any("cors_origins", cfg.CORSOrigins),
				log.Bool("watch", cfg.Watch),
				log.Bool("metrics", cfg.Metrics),
			)

			svc, err := transferencias.New(cfg, transferencias.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("create service: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := svc.Start(ctx); err != nil {
				return fmt.Errorf("start service: %w", err)
			}

			<-ctx.Done()
			logger.Info("received signal, stopping...")

			if err := svc.Stop(); err != nil {
				return fmt.Errorf("stop service: %w", err)
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.sr-transferencias/config.toml)")
	root.Flags().StringVar(&cfg.Host, "host", cfg.Host, "listen address")
	root.Flags().IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	root.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding one JSON file per transfer")
	root.Flags().StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "serve the frontend from this directory instead of the built-in copy")
	root.Flags().StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "IANA time zone for record timestamps (default: local)")
	root.Flags().IntVar(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "maximum request body size")
	root.Flags().StringSliceVar(&cfg.CORSOrigins, "cors-origin", cfg.CORSOrigins, "allowed CORS origins (repeatable)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "watch the data directory for changes made outside the API")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "expose Prometheus metrics at /metrics")

	root.Flags().DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "HTTP read timeout")
	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "HTTP write timeout")
	root.Flags().DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "HTTP keep-alive idle timeout")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown limit")
	for _, name := range []string{"read-timeout", "write-timeout", "idle-timeout"} {
		if err := root.Flags().MarkHidden(name); err != nil {
			bootLog.Info("failed to hide flag", log.String("flag", name), log.Err(err))
		}
	}

	if err := root.Execute(); err != nil {
		bootLog.Error("sr-transferencias", log.Err(err))
		os.Exit(1)
	}
}
