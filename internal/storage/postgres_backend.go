package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"camgate-go/internal/migrations"
	"camgate-go/internal/models"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const defaultPGTimeout = 5 * time.Second

// pq error code for unique_violation
const pgUniqueViolation = "23505"

// PostgresBackend keeps cameras in the cameras table; the full config is a
// JSONB column, with id/name/kind/timestamps lifted out for querying.
type PostgresBackend struct {
	dsn string
	db  *sql.DB
}

func withPGTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, defaultPGTimeout)
}

// NewPostgresBackend opens a pool and verifies connectivity.
func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Info("Connected to PostgreSQL storage backend")
	return &PostgresBackend{dsn: dsn, db: db}, nil
}

// Initialize applies schema migrations on a dedicated connection.
func (p *PostgresBackend) Initialize(ctx context.Context) error {
	schema, err := migrations.OpenPostgres(p.dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer schema.Close()
	version, err := schema.Up()
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.WithField("schema_version", version).Info("PostgreSQL migrations applied")
	return nil
}

func (p *PostgresBackend) Close() error {
	return p.db.Close()
}

func (p *PostgresBackend) Health(ctx context.Context) error {
	ctx, cancel := withPGTimeout(ctx)
	defer cancel()
	return p.db.PingContext(ctx)
}

// DB exposes the pool for migration tooling.
func (p *PostgresBackend) DB() *sql.DB { return p.db }

func (p *PostgresBackend) FetchAll(ctx context.Context) ([]models.CameraConfig, error) {
	ctx, cancel := withPGTimeout(ctx)
	defer cancel()
	rows, err := p.db.QueryContext(ctx, "SELECT data FROM cameras ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	defer rows.Close()

	out := []models.CameraConfig{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cfg, err := decodeConfig(data)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

func (p *PostgresBackend) Insert(ctx context.Context, cfg models.CameraConfig) error {
	if err := validateForWrite(cfg); err != nil {
		return err
	}
	data, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := withPGTimeout(ctx)
	defer cancel()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO cameras (id, name, kind, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		cfg.ID, cfg.Name, string(cfg.Kind), data, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return &ErrAlreadyExists{Key: cfg.ID}
		}
		return fmt.Errorf("insert camera %s: %w", cfg.ID, err)
	}
	return nil
}

func (p *PostgresBackend) Save(ctx context.Context, cfg models.CameraConfig) error {
	if err := validateForWrite(cfg); err != nil {
		return err
	}
	data, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := withPGTimeout(ctx)
	defer cancel()
	res, err := p.db.ExecContext(ctx,
		`UPDATE cameras SET name = $2, kind = $3, data = $4, updated_at = $5 WHERE id = $1`,
		cfg.ID, cfg.Name, string(cfg.Kind), data, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update camera %s: %w", cfg.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ErrNotFound{Key: cfg.ID}
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, id string) error {
	ctx, cancel := withPGTimeout(ctx)
	defer cancel()
	if _, err := p.db.ExecContext(ctx, "DELETE FROM cameras WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete camera %s: %w", id, err)
	}
	return nil
}
