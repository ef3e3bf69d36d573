package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"camgate-go/internal/credential"
	"camgate-go/internal/models"
	"github.com/spf13/cobra"
)

type cameraRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Target    string `json:"target"`
	HasSecret bool   `json:"has_secret"`
}

func newCamerasCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cameras",
		Short: "List configured cameras",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			cams := gw.cameras.Cameras()
			rows := make([]cameraRow, 0, len(cams))
			for _, c := range cams {
				_, has := credential.Resolve(ctx, gw.secrets, c.SecretKey())
				rows = append(rows, cameraRow{
					ID:        c.ID,
					Name:      c.Name,
					Kind:      string(c.Kind),
					Target:    cameraTarget(c),
					HasSecret: has,
				})
			}

			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				return writeJSON(out, rows)
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\tTARGET\tSECRET")
			for _, r := range rows {
				secret := "no"
				if r.HasSecret {
					secret = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Kind, r.Target, secret)
			}
			return w.Flush()
		},
	}
}

// cameraTarget renders where a camera lives with any password redacted.
func cameraTarget(c models.CameraConfig) string {
	switch c.Kind {
	case models.KindRTSP:
		if u, err := url.Parse(c.StreamURL); err == nil {
			return u.Redacted()
		}
		return c.StreamURL
	case models.KindVendorLocal:
		if c.Port > 0 {
			return c.Host + ":" + strconv.Itoa(c.Port)
		}
		return c.Host
	case models.KindHubProxy:
		return c.HubBaseURL + " " + c.EntityID
	default:
		return ""
	}
}
