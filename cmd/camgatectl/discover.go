package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"camgate-go/internal/discovery"
	"github.com/spf13/cobra"
)

// discoveryBrowser is nil in production, selecting multicast DNS.
var discoveryBrowser discovery.Browser

func newDiscoverCmd(flags *globalFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Browse the local network for cameras and camera hubs",
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
			if timeout <= 0 {
				timeout = cfg.DiscoveryTimeout()
			}
			hub := discovery.NewHub(discoveryBrowser, discovery.Options{Domain: cfg.Discovery.Domain, Timeout: timeout})
			results := hub.Scan(ctx)

			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				return writeJSON(out, results)
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tADDRESS\tSUGGESTED URL")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Kind, r.Name, r.Address(), r.SuggestedURL)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d result(s)\n", len(results))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "browse window (default from configuration)")
	return cmd
}
