package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"camgate-go/internal/models"
	store "camgate-go/internal/storage"
	"github.com/spf13/cobra"
)

const snapshotVersion = 1

// cameraSnapshot is the export document. Secrets are never included.
type cameraSnapshot struct {
	Version int                   `json:"version"`
	Cameras []models.CameraConfig `json:"cameras"`
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored camera configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, flags, func(ctx context.Context, backend store.Backend) error {
				cams, err := backend.FetchAll(ctx)
				if err != nil {
					return fmt.Errorf("fetch cameras: %w", err)
				}
				w := cmd.OutOrStdout()
				if file != "" {
					if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
						return fmt.Errorf("create export directory: %w", err)
					}
					f, err := os.Create(file)
					if err != nil {
						return fmt.Errorf("open export file: %w", err)
					}
					defer f.Close()
					w = f
				}
				return writeJSON(w, cameraSnapshot{Version: snapshotVersion, Cameras: cams})
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "export file (default stdout)")
	return cmd
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var (
		file      string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load camera configurations from an export document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := readSnapshot(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return withBackend(cmd, flags, func(ctx context.Context, backend store.Backend) error {
				res, err := importCameras(ctx, backend, snap.Cameras, overwrite)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d, updated %d, skipped %d\n", res.inserted, res.updated, res.skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "import file (default stdin)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace cameras whose id already exists")
	return cmd
}

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare stored cameras against an export document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := readSnapshot(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return withBackend(cmd, flags, func(ctx context.Context, backend store.Backend) error {
				current, err := backend.FetchAll(ctx)
				if err != nil {
					return fmt.Errorf("fetch cameras: %w", err)
				}
				diffs := diffCameras(snap.Cameras, current)
				out := cmd.OutOrStdout()
				if len(diffs) == 0 {
					fmt.Fprintln(out, "storage matches reference snapshot")
					return nil
				}
				for _, d := range diffs {
					fmt.Fprintln(out, d)
				}
				return fmt.Errorf("storage diverges from reference snapshot (%d difference(s))", len(diffs))
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "reference file (default stdin)")
	return cmd
}

func withBackend(cmd *cobra.Command, flags *globalFlags, fn func(context.Context, store.Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	return fn(ctx, backend)
}

func readSnapshot(stdin io.Reader, path string) (cameraSnapshot, error) {
	r := stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cameraSnapshot{}, err
		}
		defer f.Close()
		r = f
	}
	var snap cameraSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return cameraSnapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return cameraSnapshot{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap, nil
}

type importResult struct {
	inserted, updated, skipped int
}

// importCameras inserts each camera, replacing existing ids only when
// overwrite is set. Invalid entries abort before anything is written.
func importCameras(ctx context.Context, backend store.Backend, cams []models.CameraConfig, overwrite bool) (importResult, error) {
	var res importResult
	for i := range cams {
		cams[i].Normalize()
		if err := cams[i].Validate(); err != nil {
			return res, fmt.Errorf("camera %q: %w", cams[i].ID, err)
		}
	}
	for _, c := range cams {
		err := backend.Insert(ctx, c)
		switch {
		case err == nil:
			res.inserted++
		case store.IsAlreadyExists(err) && overwrite:
			if err := backend.Save(ctx, c); err != nil {
				return res, fmt.Errorf("update %s: %w", c.ID, err)
			}
			res.updated++
		case store.IsAlreadyExists(err):
			res.skipped++
		default:
			return res, fmt.Errorf("insert %s: %w", c.ID, err)
		}
	}
	return res, nil
}

// diffCameras lists ids missing on either side or stored with different content.
func diffCameras(want, got []models.CameraConfig) []string {
	byID := make(map[string]models.CameraConfig, len(got))
	for _, c := range got {
		byID[c.ID] = c
	}
	var diffs []string
	for _, w := range want {
		g, ok := byID[w.ID]
		if !ok {
			diffs = append(diffs, "missing: "+w.ID)
			continue
		}
		delete(byID, w.ID)
		if !sameCamera(w, g) {
			diffs = append(diffs, "changed: "+w.ID)
		}
	}
	for id := range byID {
		diffs = append(diffs, "unexpected: "+id)
	}
	sort.Strings(diffs)
	return diffs
}

func sameCamera(a, b models.CameraConfig) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) || !a.UpdatedAt.Equal(b.UpdatedAt) {
		return false
	}
	a.CreatedAt, b.CreatedAt = time.Time{}, time.Time{}
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}
