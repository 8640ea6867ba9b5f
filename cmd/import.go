package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/suburbmates/directory-cli/internal/business"
	"github.com/suburbmates/directory-cli/internal/fetcher"
	"github.com/suburbmates/directory-cli/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <source>",
	Short: "Import a business registry extract",
	Long: `Ingest a registry extract into the directory.

The source may be a local file, an http(s) URL, or an ftp URL pointing
at a CSV or XLSX export, optionally zipped. Records are normalized and
upserted on (name, suburb), so re-imports refresh existing listings.

Examples:
  import ./council-registry.csv
  import https://data.gov.au/exports/businesses.csv.zip
  import ftp://data.example.gov.au/registry/businesses.xlsx --sheet Register`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("sheet", "", "xlsx sheet name (default: first sheet)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	pg, ok := store.(*business.PostgresStore)
	if !ok {
		return eris.New("import requires the postgres store driver")
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Import.TempDir, 0o755); err != nil {
		return eris.Wrap(err, "import: create temp dir")
	}

	timeout := time.Duration(cfg.Import.TimeoutSecs) * time.Second
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Import.UserAgent,
		Timeout:    timeout,
		RatePerSec: cfg.Import.RatePerSec,
	})
	ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout})

	sheet, _ := cmd.Flags().GetString("sheet")
	imp := importer.New(pg.Pool(), httpFetcher, ftpFetcher, importer.Options{
		TempDir:   cfg.Import.TempDir,
		SheetName: sheet,
	})

	res, err := imp.Run(ctx, args[0])
	if err != nil {
		return eris.Wrapf(err, "import %s", args[0])
	}

	fmt.Printf("Imported %d of %d rows (%d skipped)\n", res.Imported, res.Total, res.Skipped)
	return nil
}
