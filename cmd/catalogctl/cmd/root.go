// Package cmd provides the catalogctl commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Cheertaboi/esim-catalog-service/internal/app"
	"github.com/Cheertaboi/esim-catalog-service/internal/config"
	"github.com/Cheertaboi/esim-catalog-service/pkg/logger"
	"github.com/Cheertaboi/esim-catalog-service/pkg/metrics"
)

var version = "0.1.0"

const (
	formatJSON  = "json"
	formatTable = "table"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	cfgFile  string
	upstream string
	verbose  bool
	offline  bool
	format   string

	app *app.App
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "catalogctl",
		Short: "Query the eSIM bundle catalog from the command line",
		Long: `catalogctl runs the catalog pipeline against the marketplace backend and
prints listings the way the storefront sees them.

Examples:
  catalogctl countries --sort price
  catalogctl bundles --type regional --query europe
  catalogctl regions --region Americas --format table
  catalogctl qr --order-id 12345 --out qr.png`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return o.init(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.app != nil {
				o.app.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&o.cfgFile, "config", "", "env file to load (default .env if present)")
	root.PersistentFlags().StringVar(&o.upstream, "upstream", "", "backend base URL (overrides UPSTREAM_BASE_URL)")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVar(&o.offline, "offline", false, "skip Redis and Postgres even when configured")
	root.PersistentFlags().StringVar(&o.format, "format", formatJSON, "output format (json, table)")

	root.AddCommand(
		newBundlesCmd(o),
		newCountriesCmd(o),
		newRegionsCmd(o),
		newQRCmd(o),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) init(ctx context.Context) error {
	if o.format != formatJSON && o.format != formatTable {
		return fmt.Errorf("unknown format %q; use json or table", o.format)
	}

	var files []string
	if o.cfgFile != "" {
		files = append(files, o.cfgFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.upstream != "" {
		cfg.UpstreamBaseURL = strings.TrimRight(o.upstream, "/")
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log := logger.NewLogger(logger.Options{Level: level, Format: "console"})

	o.app = app.New(ctx, cfg, log, metrics.NewNop(), app.Options{Offline: o.offline})
	return nil
}

func (o *options) print(w io.Writer, v interface{}, table func(tw *tabwriter.Writer)) error {
	if o.format == formatTable {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catalogctl version %s\n", version)
		},
	}
}
