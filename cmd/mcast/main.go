package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cliplugins "mcast/internal/cli_plugins"
	"mcast/internal/config"
	"mcast/internal/util/logger/handlers/slogpretty"
	"mcast/pkg/cli"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	// Создаем контекст с отменой для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	deps := &cliplugins.Deps{}

	go func() {
		sig := <-signalChannel
		if deps.Log != nil {
			deps.Log.Info("shutdown signal received", slog.Any("signal", sig))
		}
		cancel()
	}()

	CLI := cli.NewCLI(ctx, "mcast", "Send and receive intents over UDP multicast")

	var configPath string
	root := CLI.Root()
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Загружаем конфигурацию
		cfg := config.MustLoad(configPath)
		deps.Config = cfg
		deps.Log = setupLogger(cfg.Env, os.Stderr)
	}

	CLI.RegisterPlugin(cliplugins.NewListenCommand(deps))
	CLI.RegisterPlugin(cliplugins.NewSendCommand(deps))
	CLI.RegisterPlugin(cliplugins.NewRequestCommand(deps))
	CLI.RegisterPlugin(cliplugins.NewRespondCommand(deps))
	CLI.RegisterPlugin(cliplugins.NewHistoryCommand(deps))

	if err := CLI.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func setupLogger(env string, writer io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog(writer)
	case envDev:
		log = slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return log
}

func setupPrettySlog(writer io.Writer) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(writer)

	return slog.New(handler)
}
