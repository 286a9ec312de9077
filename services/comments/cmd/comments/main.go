package main

import (
	"context"
	"net"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/comment-tree/internal/platform/config"
	"github.com/example/comment-tree/internal/platform/events"
	"github.com/example/comment-tree/internal/platform/httpserver"
	"github.com/example/comment-tree/internal/platform/idempotency"
	"github.com/example/comment-tree/internal/platform/logging"
	"github.com/example/comment-tree/internal/platform/natsconn"
	"github.com/example/comment-tree/internal/platform/run"
	"github.com/example/comment-tree/services/comments/internal/grpcapi"
	"github.com/example/comment-tree/services/comments/internal/handlers"
	"github.com/example/comment-tree/services/comments/internal/service"
	"github.com/example/comment-tree/services/comments/internal/store"
	"github.com/example/comment-tree/services/comments/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.ForService(cfg.LogLevel, cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	backend, closeStore := initComments(cfg, log)
	if closeStore != nil {
		defer closeStore()
	}
	comments := store.NewBreakerStore(backend, store.BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}, log)

	nc, js := initNATS(cfg, log)
	if nc != nil {
		defer nc.Close()
	}
	svc := service.New(comments, log, service.WithPublisher(events.New(js, log)))

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger: log.Named("http"),
		ReadyFunc: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return svc.Ready(ctx)
		},
	})
	handlers.Mount(r, svc, log)

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Router: r})

	// gRPC server
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		run.Exit(1)
	}
	grpcLog := log.Named("grpc")
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcapi.UnaryRecoverer(grpcLog), grpcapi.UnaryLogger(grpcLog)))
	grpcapi.RegisterCommentServiceServer(grpcSrv, &grpcapi.CommentService{Comments: svc, Log: grpcLog})
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)
	go func() {
		log.Info("grpc server starting", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc serve", zap.Error(err))
		}
	}()

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go grpcapi.WatchHealth(ctx, healthSrv, svc.Ready, 10*time.Second, log)

		// command consumer (non-fatal if NATS unavailable)
		if js != nil {
			idem, err := idempotency.NewStore(cfg.RedisDSN, cfg.DatabaseURL, cfg.IdempotencyTTL, cfg.IsProd())
			if err != nil {
				log.Error("idempotency store", zap.Error(err))
				return err
			}
			consumer := worker.NewCommandConsumer(svc, idem, log)
			if err := consumer.Start(ctx, js); err != nil {
				log.Error("command consumer", zap.Error(err))
			}
		}

		go func() {
			<-ctx.Done()
			stopped := make(chan struct{})
			go func() {
				grpcSrv.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(10 * time.Second):
				grpcSrv.Stop()
			}
			runner.Graceful(ctx, srv.Shutdown)
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initNATS connects to NATS and prepares the comment streams. It returns
// nil values when NATS is disabled or unreachable outside production.
func initNATS(cfg config.AppConfig, log *zap.Logger) (*nats.Conn, nats.JetStreamContext) {
	if !cfg.NATSEnabled {
		log.Info("nats disabled, domain events and commands are off")
		return nil, nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Name: cfg.ServiceName})
	if err != nil {
		fatalOrWarn(cfg, log, "nats connect failed", err)
		return nil, nil
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		fatalOrWarn(cfg, log, "jetstream unavailable", err)
		return nil, nil
	}
	if err := events.EnsureStream(js); err != nil {
		log.Warn("ensure event stream", zap.Error(err))
	}
	if err := worker.EnsureCommandStream(js); err != nil {
		log.Warn("ensure command stream", zap.Error(err))
	}
	return nc, js
}
