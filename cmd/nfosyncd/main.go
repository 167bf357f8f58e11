// Command nfosyncd is the long-lived sync daemon. It connects to the host
// media application, keeps the library and sidecar files reconciled, and
// serves status and metrics over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nfosync/nfosync/internal/config"
	"github.com/nfosync/nfosync/internal/kodi"
	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/progress"
	"github.com/nfosync/nfosync/internal/server"
	"github.com/nfosync/nfosync/internal/service"
)

const appName = "nfosync"

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	loader := config.NewLoader(configPath)
	settings, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nfosyncd: %v\n", err)
		return 1
	}

	log.Configure(log.Config{
		Level:   settings.LogLevel,
		Service: appName,
		Version: version,
	})
	logger := log.WithComponent("main")
	logger.Info().
		Str("version", version).
		Str("host", settings.Host.BaseURL).
		Str("event", "daemon.starting").
		Msg("starting nfosyncd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder := config.NewHolder(settings, loader, configPath)
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "daemon.watcher_failed").
			Msg("config hot-reload disabled")
	}

	timeout, _ := time.ParseDuration(settings.Host.Timeout)
	client := kodi.New(kodi.Options{
		BaseURL:  settings.Host.BaseURL,
		Username: settings.Host.Username,
		Password: settings.Host.Password,
		Timeout:  timeout,
		Sender:   settings.Host.Sender,
	})
	listener := kodi.NewListener(settings.Host.NotifyAddr)
	registry := progress.NewRegistry()

	svc := service.New(service.Options{
		Config:     holder,
		Client:     client,
		Listener:   listener,
		Progress:   registry,
		AppName:    appName,
		AppVersion: version,
	})
	statusServer := server.New(settings.StatusListen, svc, registry, version)

	errCh := make(chan error, 3)
	go func() {
		listener.Run(ctx)
		errCh <- nil
	}()
	go func() {
		errCh <- statusServer.Run(ctx)
	}()
	go func() {
		errCh <- svc.Run(ctx)
	}()

	err = <-errCh
	stop()

	// Give the remaining goroutines a moment to flush and exit.
	drain := time.After(10 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-errCh:
		case <-drain:
			i = 2
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon exited with error")
		return 1
	}
	logger.Info().Str("event", "daemon.stopped").Msg("nfosyncd stopped")
	return 0
}
