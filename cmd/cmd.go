package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/config"
)

const (
	ServiceName      = "jumpstarter-exporter"
	ServiceNamespace = "jumpstarter"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// Run builds and runs the exporter process's single-command CLI: load an
// ExporterConfig, stand up the driver tree and gRPC session it describes,
// and serve until an interrupt or SIGTERM arrives (spec §4.5, §6).
func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Jumpstarter distributed hardware test harness exporter",
		Commands: []*cli.Command{
			exportCmd(),
		},
	}

	return app.Run(os.Args)
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:    "export",
		Aliases: []string{"e"},
		Usage:   "Serve an ExporterConfig's driver tree over gRPC",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Path to the exporter's ExporterConfig YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "otel-endpoint",
				Usage: "OTLP/gRPC collector endpoint for trace export (skipped if unset)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadExporterConfig(c.String("config"))
			if err != nil {
				return err
			}

			app := NewApp(cfg, c.String("otel-endpoint"))

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down")
			return app.Stop(context.Background())
		},
	}
}
