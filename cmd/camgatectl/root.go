package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"camgate-go/internal/camera"
	"camgate-go/internal/config"
	"camgate-go/internal/credential"
	"camgate-go/internal/logging"
	"camgate-go/internal/monitoring"
	"camgate-go/internal/provider"
	store "camgate-go/internal/storage"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	jsonOutput bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "camgatectl",
		Short:         "Inspect cameras, run discovery and move camera configuration between backends",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logging.Setup(logging.Options{Level: flags.logLevel, Format: "text", Output: cmd.ErrOrStderr()})
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "configuration file (default: first of camgate.yaml, ~/.camgate/config.yaml, /etc/camgate/config.yaml)")
	root.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "output results as JSON")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newCamerasCmd(flags),
		newDiscoverCmd(flags),
		newSnapshotCmd(flags),
		newExportCmd(flags),
		newImportCmd(flags),
		newVerifyCmd(flags),
		newMigrateCmd(flags),
	)
	return root
}

// loadConfig reads the configuration once without starting a watcher.
func loadConfig(path string) (*config.FileConfig, error) {
	cm, err := config.NewConfigManager(path)
	if err != nil {
		return nil, err
	}
	defer cm.Close()
	cfg := cm.GetConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openBackend opens the configured camera storage without falling back.
func openBackend(ctx context.Context, cfg *config.FileConfig) (store.Backend, error) {
	backend, err := store.Open(ctx, cfg.Storage, monitoring.NewStats())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return backend, nil
}

// gateway bundles what the capture commands need.
type gateway struct {
	backend store.Backend
	secrets credential.Store
	cameras *camera.Manager
}

func openGateway(ctx context.Context, cfg *config.FileConfig) (*gateway, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	secrets, err := cfg.Credentials.OpenStore(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	mgr := camera.NewManager(backend, secrets, provider.NewFactory(secrets, provider.OptionsFromConfig(cfg)))
	if err := mgr.LoadConfigs(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("load cameras: %w", err)
	}
	return &gateway{backend: backend, secrets: secrets, cameras: mgr}, nil
}

func (g *gateway) Close() {
	_ = g.backend.Close()
	if c, ok := g.secrets.(io.Closer); ok {
		_ = c.Close()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
