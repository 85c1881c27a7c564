package app

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/7amooo12/SamaStylestore/internal/adapter/http"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the name reported alongside the overall ("") status.
const HealthService = "cart.v1.Cart"

// HealthServer exposes the standard gRPC health service and keeps it in step
// with the cart store's Ping.
type HealthServer struct {
	srv      *grpc.Server
	health   *health.Server
	ready    http.Pinger
	interval time.Duration
}

func NewHealthServer(ready http.Pinger, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	hs := &HealthServer{
		srv:      grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler())),
		health:   health.NewServer(),
		ready:    ready,
		interval: interval,
	}
	healthpb.RegisterHealthServer(hs.srv, hs.health)
	return hs
}

// Refresh pings the store once and publishes the result.
func (hs *HealthServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if hs.ready != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := hs.ready.Ping(pctx)
		cancel()
		if err != nil {
			logging.FromCtx(ctx).Warn("store ping failed", "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	hs.health.SetServingStatus("", status)
	hs.health.SetServingStatus(HealthService, status)
	return status
}

// Serve blocks until ctx is done, then stops the server gracefully.
func (hs *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	hs.Refresh(ctx)
	go func() {
		t := time.NewTicker(hs.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.health.Shutdown()
				hs.srv.GracefulStop()
				return
			case <-t.C:
				hs.Refresh(ctx)
			}
		}
	}()
	if err := hs.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
