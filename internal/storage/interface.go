package storage

import (
	"context"
	"errors"
	"sort"

	"camgate-go/internal/models"
)

// Backend persists camera configurations. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Initialize sets up the storage backend
	Initialize(ctx context.Context) error

	// Close releases connections and flushes pending state
	Close() error

	// Health checks if the storage backend is reachable
	Health(ctx context.Context) error

	// FetchAll returns every stored camera ordered by creation time.
	FetchAll(ctx context.Context) ([]models.CameraConfig, error)

	// Insert stores a new camera; ErrAlreadyExists if the id is taken.
	Insert(ctx context.Context, cfg models.CameraConfig) error

	// Save replaces an existing camera; ErrNotFound if it does not exist.
	Save(ctx context.Context, cfg models.CameraConfig) error

	// Delete removes a camera. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// ErrNotFound is returned when a key is not found
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return "key not found: " + e.Key
}

// ErrAlreadyExists is returned by Insert for a duplicate id
type ErrAlreadyExists struct {
	Key string
}

func (e *ErrAlreadyExists) Error() string {
	return "key already exists: " + e.Key
}

// IsNotFound reports whether err is (or wraps) an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// IsAlreadyExists reports whether err is (or wraps) an ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	var ae *ErrAlreadyExists
	return errors.As(err, &ae)
}

// sortConfigs orders by CreatedAt, then ID for a stable listing.
func sortConfigs(cfgs []models.CameraConfig) {
	sort.SliceStable(cfgs, func(i, j int) bool {
		if cfgs[i].CreatedAt.Equal(cfgs[j].CreatedAt) {
			return cfgs[i].ID < cfgs[j].ID
		}
		return cfgs[i].CreatedAt.Before(cfgs[j].CreatedAt)
	})
}

func validateForWrite(cfg models.CameraConfig) error {
	if cfg.ID == "" {
		return errors.New("storage: camera id is required")
	}
	return nil
}
