package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"

	"service-dispatch/internal/app"
	"service-dispatch/internal/config"
	"service-dispatch/internal/http/pprofserver"
	"service-dispatch/internal/logx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container := app.MustBuildContainer(ctx)
	startPprof(container)
	app.MustRun(container)
}

// startPprof serves the debug endpoints on a separate port when PPROF_PORT is
// set. Non-loopback access requires the basic-auth credentials from config.
func startPprof(container *dig.Container) {
	_ = container.Invoke(func(cfg *config.Config, logger logx.Logger) {
		if cfg.Pprof.Port <= 0 {
			return
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Pprof.Port),
			Handler:           pprofserver.Handler(pprofserver.Config{User: cfg.Pprof.User, Pass: cfg.Pprof.Pass}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("pprof listening", logx.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("pprof server error", logx.Any("err", err))
			}
		}()
	})
}
