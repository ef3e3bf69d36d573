package storage

import (
	"context"
	"time"

	"camgate-go/internal/models"
	"camgate-go/internal/monitoring"
	"camgate-go/internal/monitoring/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// WithInstrumentation wraps a backend with tracing and metrics instrumentation.
func WithInstrumentation(inner Backend, stats *monitoring.Stats, label string) Backend {
	if inner == nil {
		return nil
	}
	if label == "" {
		label = "unknown"
	}
	return &instrumentedBackend{Backend: inner, stats: stats, label: label}
}

type instrumentedBackend struct {
	Backend
	stats *monitoring.Stats
	label string
}

// Unwrap returns the wrapped backend.
func (i *instrumentedBackend) Unwrap() Backend { return i.Backend }

func (i *instrumentedBackend) Health(ctx context.Context) error {
	return i.instrument(ctx, "health", i.Backend.Health)
}

func (i *instrumentedBackend) FetchAll(ctx context.Context) ([]models.CameraConfig, error) {
	var result []models.CameraConfig
	err := i.instrument(ctx, "fetch_all", func(ctx context.Context) error {
		var innerErr error
		result, innerErr = i.Backend.FetchAll(ctx)
		return innerErr
	})
	return result, err
}

func (i *instrumentedBackend) Insert(ctx context.Context, cfg models.CameraConfig) error {
	return i.instrument(ctx, "insert", func(ctx context.Context) error {
		return i.Backend.Insert(ctx, cfg)
	})
}

func (i *instrumentedBackend) Save(ctx context.Context, cfg models.CameraConfig) error {
	return i.instrument(ctx, "save", func(ctx context.Context) error {
		return i.Backend.Save(ctx, cfg)
	})
}

func (i *instrumentedBackend) Delete(ctx context.Context, id string) error {
	return i.instrument(ctx, "delete", func(ctx context.Context) error {
		return i.Backend.Delete(ctx, id)
	})
}

func (i *instrumentedBackend) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracing.StartSpan(ctx, "storage", i.label+"/"+operation)
	span.SetAttributes(
		attribute.String("storage.backend", i.label),
		attribute.String("storage.operation", operation),
	)
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	i.stats.RecordStorageOperation(i.label, operation, duration, err)
	return err
}
