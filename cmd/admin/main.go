package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-catalog/internal/logging"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/admin"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/config"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/scan"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if err := execute(os.Stdout, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// execute runs one command and always releases the stores it opened
func execute(out io.Writer, args []string) error {
	root, c := newRootCmd(out)
	root.SetArgs(args)
	err := root.Execute()
	if cerr := c.close(); err == nil {
		err = cerr
	}
	return err
}

type cli struct {
	out        io.Writer
	configFile string
	timeout    time.Duration
	svc        simplecatalog.Service
}

func newRootCmd(out io.Writer) (*cobra.Command, *cli) {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "admin",
		Short: "Simple Catalog admin CLI",
		Long: `A lightweight admin tool operating directly on the configured stores.

Configuration comes from the same environment variables as the server
(DATABASE_URL, STORAGE_URL, DB_SCHEMA, AWS_*), optionally a .env file in
the current directory, or --config.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context())
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "yaml/json/env config file")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", time.Minute, "timeout for store operations")

	root.AddCommand(c.statsCmd(), c.listCmd(), c.uploadCmd(), c.deleteCmd(), c.verifyCmd())
	return root, c
}

func (c *cli) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		cfg *config.ServerConfig
		err error
	)
	if c.configFile != "" {
		cfg, err = config.FromFile(c.configFile)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Setup(cfg.Environment, cfg.LogLevel)

	// The CLI has no HTTP surface, so event logging would only add noise.
	cfg.EnableEventLogging = false

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	c.svc, err = cfg.BuildService(ctx)
	return err
}

func (c *cli) close() error {
	if c.svc == nil {
		return nil
	}
	err := c.svc.Close()
	c.svc = nil
	return err
}

func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *cli) statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show totals and a per-category breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			stats, err := admin.New(c.svc).GetStatistics(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return c.printJSON(stats)
			}

			fmt.Fprintf(c.out, "Vectors:   %s\n", humanize.Comma(int64(stats.TotalVectors)))
			fmt.Fprintf(c.out, "Downloads: %s\n", humanize.Comma(stats.TotalDownloads))
			if stats.NewestDate != "" {
				fmt.Fprintf(c.out, "Dates:     %s .. %s\n", stats.OldestDate, stats.NewestDate)
			}
			fmt.Fprintln(c.out)

			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "CATEGORY\tVECTORS\tDOWNLOADS\n")
			for _, cat := range stats.Categories {
				fmt.Fprintf(w, "%s\t%d\t%s\n", cat.Name, cat.Count, humanize.Comma(cat.Downloads))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every entry, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			resp, err := admin.New(c.svc).ListAll(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return c.printJSON(resp)
			}

			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "SLUG\tCATEGORY\tTITLE\tDATE\tSIZE\tDOWNLOADS\n")
			for _, e := range resp.Vectors {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
					e.Slug, e.Category, truncate(e.Title, 32), e.Date, e.FileSize, e.Downloads)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (c *cli) uploadCmd() *cobra.Command {
	var metadataPath, imagePath, packagePath string
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Add an entry from a metadata file, preview image and zip package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			files := make([]*os.File, 0, 3)
			defer func() {
				for _, f := range files {
					f.Close()
				}
			}()
			for _, p := range []string{metadataPath, imagePath, packagePath} {
				f, err := os.Open(p)
				if err != nil {
					return err
				}
				files = append(files, f)
			}

			entry, err := c.svc.Ingest(ctx, simplecatalog.IngestRequest{
				MetadataName: filepath.Base(metadataPath),
				Metadata:     files[0],
				Image:        files[1],
				Package:      files[2],
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Uploaded: %s (%s, %s)\n", entry.Slug, entry.Category, entry.FileSize)
			return nil
		},
	}
	cmd.Flags().StringVar(&metadataPath, "json", "", "metadata file (.json, .yaml or .yml); its base name is the slug")
	cmd.Flags().StringVar(&imagePath, "jpeg", "", "preview image")
	cmd.Flags().StringVar(&packagePath, "zip", "", "downloadable package")
	cmd.MarkFlagRequired("json")
	cmd.MarkFlagRequired("jpeg")
	cmd.MarkFlagRequired("zip")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete SLUG",
		Short: "Remove an entry and its assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			if err := c.svc.Retract(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted: %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) verifyCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report entries whose image or package is missing from the asset store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			result, err := scan.New(c.svc).Scan(ctx, scan.ScanOptions{
				Category:  category,
				Processor: scan.NewAssetVerifier(c.svc, nil),
			})
			if err != nil {
				return err
			}

			for _, slug := range result.FailedSlugs {
				fmt.Fprintf(c.out, "MISSING  %s\n", slug)
			}
			fmt.Fprintf(c.out, "Verified %d entries, %d incomplete\n", result.TotalFound, result.TotalFailed)
			if result.TotalFailed > 0 {
				return fmt.Errorf("%d entries have missing assets", result.TotalFailed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only verify one category")
	return cmd
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
