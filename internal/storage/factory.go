package storage

import (
	"context"
	"fmt"
	"strings"

	"camgate-go/internal/monitoring"
	log "github.com/sirupsen/logrus"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string `yaml:"backend" json:"backend"` // file|redis|postgres|mongodb
	BaseDir       string `yaml:"base_dir" json:"base_dir"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty" json:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`
	PostgresDSN   string `yaml:"postgres_dsn,omitempty" json:"postgres_dsn,omitempty"`
	MongoURI      string `yaml:"mongodb_uri,omitempty" json:"mongodb_uri,omitempty"`
	MongoDatabase string `yaml:"mongodb_database" json:"mongodb_database"`
}

// Label normalizes the configured backend name; empty means file.
func (o Options) Label() string {
	label := strings.ToLower(strings.TrimSpace(o.Backend))
	if label == "" || label == "auto" {
		if o.PostgresDSN != "" {
			return "postgres"
		}
		if o.MongoURI != "" {
			return "mongodb"
		}
		if o.RedisAddr != "" {
			return "redis"
		}
		return "file"
	}
	if label == "mongo" {
		return "mongodb"
	}
	return label
}

// Open builds, initializes and instruments the configured backend.
func Open(ctx context.Context, opts Options, stats *monitoring.Stats) (Backend, error) {
	label := opts.Label()
	var (
		backend Backend
		err     error
	)
	switch label {
	case "file":
		dir := opts.BaseDir
		if dir == "" {
			dir = "./data"
		}
		backend = NewFileBackend(dir)
	case "redis":
		backend, err = NewRedisBackend(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix)
	case "postgres":
		backend, err = NewPostgresBackend(opts.PostgresDSN)
	case "mongodb":
		backend, err = NewMongoDBBackend(opts.MongoURI, opts.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", label, err)
	}
	if err := backend.Initialize(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("%s backend initialize: %w", label, err)
	}
	log.WithField("backend", label).Info("camera storage ready")
	return WithInstrumentation(backend, stats, label), nil
}
