package grpcapi

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// WatchHealth probes ready every interval and mirrors the result into hs for
// both the overall server and ServiceName, until ctx is done.
func WatchHealth(ctx context.Context, hs *health.Server, ready func(context.Context) error, interval time.Duration, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		st := healthpb.HealthCheckResponse_SERVING
		if err := ready(pctx); err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			if last != st {
				log.Warn("comment store not ready", zap.Error(err))
			}
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(ServiceName, st)
		last = st
	}

	probe()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			probe()
		}
	}
}
