package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/7amooo12/SamaStylestore/cmd/cart-api/app"
	"github.com/7amooo12/SamaStylestore/configs"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"golang.org/x/sync/errgroup"
)

func main() {
	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.InitWithConfig(ctx, cfg)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "env", env, "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if addr := cfg.GRPC.HealthAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("grpc listen failed", "addr", addr, "err", err)
			cleanup()
			os.Exit(1)
		}
		hs := app.NewHealthServer(a.Ready, 0)
		g.Go(func() error {
			logger.Info("grpc health listening", "addr", addr)
			return hs.Serve(gctx, lis)
		})
	}

	for _, w := range a.Workers {
		g.Go(func() error {
			logger.Info("worker started", "worker", w.Name)
			if err := w.Run(gctx); err != nil {
				logger.Error("worker stopped", "worker", w.Name, "err", err)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("cart-api exited", "err", err)
		cleanup()
		os.Exit(1)
	}
	logger.Info("cart-api stopped")
}
