// scontrino-report pulls the expenses-by-category report for a date
// range and writes it as CSV or appends it to a Google spreadsheet.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"scontrino/internal/api"
	"scontrino/internal/config"
	applog "scontrino/internal/log"
	"scontrino/internal/report"
	"scontrino/internal/session"
	"scontrino/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentReport)

	var (
		startFlag  = flag.String("start", "", "range start (YYYY-MM-DD), default 6 months ago")
		endFlag    = flag.String("end", "", "range end (YYYY-MM-DD), default today")
		outFlag    = flag.String("out", "-", "CSV output path, - for stdout")
		sheetsFlag = flag.Bool("sheets", false, "append to the configured Google spreadsheet instead of CSV")
	)
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}

	now := time.Now()
	start := now.AddDate(0, -6, 0)
	end := now
	var err error
	if *startFlag != "" {
		if start, err = time.ParseInLocation("2006-01-02", *startFlag, time.Local); err != nil {
			logger.Error("invalid -start", applog.FieldError, err.Error())
			os.Exit(1)
		}
	}
	if *endFlag != "" {
		if end, err = time.ParseInLocation("2006-01-02", *endFlag, time.Local); err != nil {
			logger.Error("invalid -end", applog.FieldError, err.Error())
			os.Exit(1)
		}
	}

	client := api.NewClient(&api.Config{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.APIToken,
		Timeout: cfg.APITimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Names for the joined rows come from the full vendor and category
	// collections.
	st := store.New()
	ses := session.New(client, st, logger)
	if err := ses.FetchAllVendors(ctx); err != nil {
		logger.Error("fetch vendors", applog.FieldError, err.Error())
		os.Exit(1)
	}
	if err := ses.FetchAllCategories(ctx); err != nil {
		logger.Error("fetch categories", applog.FieldError, err.Error())
		os.Exit(1)
	}

	_, offsetSec := now.Zone()
	items, err := report.FetchAll(ctx, client, start.Unix(), end.Unix(), offsetSec/3600)
	if err != nil {
		logger.Error("fetch report", applog.FieldError, err.Error())
		os.Exit(1)
	}
	rows := report.Join(items, st)
	logger.Info("report fetched",
		applog.FieldItemCount, len(rows),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"))

	if *sheetsFlag {
		if err := exportToSheets(ctx, cfg, rows, logger); err != nil {
			logger.Error("sheets export failed", applog.FieldError, err.Error())
			os.Exit(1)
		}
		return
	}

	var out io.Writer = os.Stdout
	if *outFlag != "-" {
		f, err := os.Create(*outFlag)
		if err != nil {
			logger.Error("create output file", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := report.WriteCSV(out, rows); err != nil {
		logger.Error("write csv", applog.FieldError, err.Error())
		os.Exit(1)
	}
}

func exportToSheets(ctx context.Context, cfg *config.Config, rows []report.Row, logger *applog.Logger) error {
	if !cfg.SheetsExportEnabled() {
		return fmt.Errorf("GOOGLE_SPREADSHEET_ID not configured")
	}

	credentials := []byte(cfg.GoogleCredentialsJSON)
	if len(credentials) == 0 && cfg.GoogleCredentialsFile != "" {
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return fmt.Errorf("read credentials file: %w", err)
		}
		credentials = data
	}

	exporter, err := report.NewSheetsExporter(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, credentials)
	if err != nil {
		return err
	}
	ref, err := exporter.Export(ctx, rows)
	if err != nil {
		return err
	}
	logger.Info("report appended to spreadsheet", applog.FieldSheetsRef, ref)
	return nil
}
