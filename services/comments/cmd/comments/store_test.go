package main

import (
	"testing"

	"github.com/example/comment-tree/internal/platform/config"
)

func TestSelectBackend(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.AppConfig
		want string
	}{
		{"nothing configured", config.AppConfig{}, config.BackendMemory},
		{"mongo uri wins", config.AppConfig{Mongo: config.MongoConfig{URI: "mongodb://db"}, DatabaseURL: "postgres://db"}, config.BackendMongo},
		{"postgres", config.AppConfig{DatabaseURL: "postgres://db"}, config.BackendPostgres},
		{"explicit memory", config.AppConfig{StoreBackend: config.BackendMemory, DatabaseURL: "postgres://db"}, config.BackendMemory},
		{"explicit postgres", config.AppConfig{StoreBackend: config.BackendPostgres, Mongo: config.MongoConfig{URI: "mongodb://db"}}, config.BackendPostgres},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := selectBackend(tc.cfg); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
