package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(flags *globalFlags) *cobra.Command {
	var (
		output  string
		format  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "snapshot <camera id or name>",
		Short: "Capture one frame from a camera and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format == "jpg" {
				format = "jpeg"
			}
			if format != "jpeg" && format != "png" {
				return fmt.Errorf("unsupported format %q (expected jpeg or png)", format)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			gw, err := openGateway(ctx, cfg)
			if err != nil {
				return err
			}
			defer gw.Close()

			cam, ok := findCamera(gw.cameras.Cameras(), args[0])
			if !ok {
				return fmt.Errorf("camera %q not found", args[0])
			}

			if timeout <= 0 {
				timeout = 2 * cfg.HTTPTimeout()
			}
			captureCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			f, err := gw.cameras.CaptureFrame(captureCtx, cam)
			if err != nil {
				return fmt.Errorf("capture %s: %w", cam.Name, err)
			}
			data, err := frame.Encode(f, format)
			if err != nil {
				return fmt.Errorf("encode frame: %w", err)
			}

			if output == "" {
				ext := "jpg"
				if format == "png" {
					ext = "png"
				}
				output = cam.ID + "." + ext
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			b := f.Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d, %d bytes)\n", output, b.Dx(), b.Dy(), len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <camera id>.<ext>)")
	cmd.Flags().StringVar(&format, "format", "jpeg", "image format: jpeg or png")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "capture timeout (default twice the HTTP timeout)")
	return cmd
}

// findCamera matches by id first, then by case-insensitive name.
func findCamera(cams []models.CameraConfig, ref string) (models.CameraConfig, bool) {
	for _, c := range cams {
		if c.ID == ref {
			return c, true
		}
	}
	for _, c := range cams {
		if strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	return models.CameraConfig{}, false
}
