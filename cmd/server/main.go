package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Tyrowin/roomchat/internal/logging"
	"github.com/Tyrowin/roomchat/internal/server"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}

	srv := server.New(cfg, logger)
	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	srv.StartHub()

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return srv.StartServer(httpServer)
	})

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"room-chat": func(ctx context.Context) error {
				return srv.Shutdown(ctx, httpServer)
			},
		},
	)

	var exitCode int
	select {
	case exitCode = <-wait:
	case <-gctx.Done():
		// The listener failed before any shutdown signal.
		exitCode = 1
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		_ = srv.Shutdown(ctx, nil)
		cancel()
	}
	if err := g.Wait(); err != nil {
		logger.Error("http server stopped with error", zap.Error(err))
		exitCode = 1
	}
	logger.Info("server exited", zap.Int("exit_code", exitCode))
	_ = logger.Sync()
	os.Exit(exitCode)
}
