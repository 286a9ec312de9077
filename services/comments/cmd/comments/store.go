package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/example/comment-tree/internal/platform/config"
	"github.com/example/comment-tree/internal/platform/db"
	"github.com/example/comment-tree/internal/platform/mongodb"
	"github.com/example/comment-tree/services/comments/internal/store"
)

// selectBackend resolves STORE_BACKEND, picking from the configured
// connection strings when it is left empty.
func selectBackend(cfg config.AppConfig) string {
	if cfg.StoreBackend != config.BackendAuto {
		return cfg.StoreBackend
	}
	switch {
	case cfg.Mongo.URI != "":
		return config.BackendMongo
	case cfg.DatabaseURL != "":
		return config.BackendPostgres
	default:
		return config.BackendMemory
	}
}

// initComments selects the CommentStore backend.
// In production (APP_ENV=production) it requires a working Mongo or Postgres
// connection and terminates the process otherwise.
func initComments(cfg config.AppConfig, log *zap.Logger) (store.CommentStore, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch selectBackend(cfg) {
	case config.BackendMongo:
		client, database, err := mongodb.Open(ctx, mongodb.Options{URI: cfg.Mongo.URI, MaxPoolSize: cfg.Mongo.MaxPoolSize})
		if err != nil {
			fatalOrWarn(cfg, log, "mongo unavailable, falling back to in-memory comment store", err)
			return store.NewInMemoryCommentStore(log), nil
		}
		cs := store.NewMongoCommentStore(database, log)
		if err := cs.EnsureIndexes(ctx); err != nil {
			log.Warn("mongo ensure indexes", zap.Error(err))
		}
		log.Info("comments store: mongo", zap.String("database", database.Name()))
		return cs, func() { _ = client.Disconnect(context.Background()) }

	case config.BackendPostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			fatalOrWarn(cfg, log, "postgres unavailable, falling back to in-memory comment store", err)
			return store.NewInMemoryCommentStore(log), nil
		}
		cs := store.NewPostgresCommentStore(pool, log)
		if err := cs.EnsureSchema(ctx); err != nil {
			pool.Close()
			fatalOrWarn(cfg, log, "postgres schema setup failed, falling back to in-memory comment store", err)
			return store.NewInMemoryCommentStore(log), nil
		}
		log.Info("comments store: postgres")
		return cs, pool.Close

	default:
		if cfg.IsProd() {
			log.Error("MONGODB_CONNECTION_STRING or DATABASE_URL is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("no database configured, using in-memory comment store (development only)")
		return store.NewInMemoryCommentStore(log), nil
	}
}

// fatalOrWarn terminates the process in production and logs a warning
// otherwise.
func fatalOrWarn(cfg config.AppConfig, log *zap.Logger, msg string, err error) {
	if cfg.IsProd() {
		log.Error(msg, zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Warn(msg, zap.Error(err))
}
