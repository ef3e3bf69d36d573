// Package migrations carries the PostgreSQL camera schema and applies it
// with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

// MigrationsTable records the applied schema version.
const MigrationsTable = "camgate_schema_migrations"

//go:embed sql/*.sql
var sqlFiles embed.FS

// Schema drives migrations for one database over its own connection.
type Schema struct {
	m *migrate.Migrate
}

// OpenPostgres connects to dsn. Close releases the connection.
func OpenPostgres(dsn string) (*Schema, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres driver: %w", err)
	}
	source, err := iofs.New(sqlFiles, "sql")
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("migrations source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return &Schema{m: m}, nil
}

// Up applies every pending migration and returns the resulting version.
func (s *Schema) Up() (uint, error) {
	if err := s.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrations up: %w", err)
	}
	v, _, err := s.Version()
	return v, err
}

// Down rolls back steps migrations; a non-positive count means one.
func (s *Schema) Down(steps int) error {
	if steps <= 0 {
		steps = 1
	}
	if err := s.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations down: %w", err)
	}
	return nil
}

// Version reports the applied version and whether the last run failed
// halfway. An empty database is version 0.
func (s *Schema) Version() (uint, bool, error) {
	version, dirty, err := s.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, dirty, fmt.Errorf("migrations version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied and clears the dirty flag without
// running anything.
func (s *Schema) Force(version int) error {
	if err := s.m.Force(version); err != nil {
		return fmt.Errorf("migrations force: %w", err)
	}
	return nil
}

func (s *Schema) Close() error {
	srcErr, dbErr := s.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Files lists the embedded migration file names in order.
func Files() ([]string, error) {
	entries, err := sqlFiles.ReadDir("sql")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Latest is the highest version among the embedded migrations.
func Latest() (uint, error) {
	names, err := Files()
	if err != nil {
		return 0, err
	}
	var latest uint
	for _, name := range names {
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return 0, fmt.Errorf("migration %q has no version prefix", name)
		}
		v, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("migration %q: %w", name, err)
		}
		if uint(v) > latest {
			latest = uint(v)
		}
	}
	return latest, nil
}
