package grpcapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestWatchHealth_NotServingWhenStoreDown(t *testing.T) {
	hs := health.NewServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go WatchHealth(ctx, hs, func(context.Context) error { return errors.New("store down") }, time.Hour, nil)

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		if err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_NOT_SERVING {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected NOT_SERVING, got %v %v", resp, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
