package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/callreport-cli/internal/callreport"
	"github.com/sells-group/callreport-cli/internal/fetcher"
	"github.com/sells-group/callreport-cli/internal/model"
)

var (
	fetchPeriod string
	fetchURL    string
	fetchDest   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and unpack one quarter's bulk archive",
	Long:  "Downloads the quarterly bulk ZIP from the FFIEC CDR (or a mirror URL) and unpacks the tab-delimited schedule files, ready for import.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		period, err := model.ParsePeriod(fetchPeriod)
		if err != nil {
			return err
		}

		archiveName := bulkArchiveName(period)
		rawURL := fetchURL
		if rawURL == "" {
			rawURL = strings.TrimRight(cfg.Fetch.BaseURL, "/") + "/" + url.PathEscape(archiveName)
		}

		if err := os.MkdirAll(fetchDest, 0o755); err != nil {
			return err
		}
		zipPath := filepath.Join(fetchDest, archiveName)

		var f fetcher.Fetcher
		if strings.HasPrefix(rawURL, "ftp://") {
			f = fetcher.NewFTPFetcher(fetcher.FTPOptions{
				Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			})
		} else {
			f = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				UserAgent:    cfg.Fetch.UserAgent,
				Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
				MaxRetries:   cfg.Fetch.Retries,
				RateLimiters: fetcher.DefaultRateLimiters(),
			})
		}

		zap.L().Info("downloading bulk archive",
			zap.String("url", rawURL),
			zap.String("dest", zipPath),
		)
		n, err := f.DownloadToFile(ctx, rawURL, zipPath)
		if err != nil {
			return err
		}
		fmt.Printf("Downloaded %s (%d bytes)\n", archiveName, n)

		extracted, err := fetcher.ExtractZIP(zipPath, fetchDest)
		if err != nil {
			return err
		}
		fmt.Printf("Extracted %d files to %s\n", len(extracted), fetchDest)

		files, err := callreport.FindRequiredFiles(fetchDest)
		if err != nil {
			return err
		}
		if missing := files.MissingRequired(); len(missing) > 0 {
			fmt.Printf("Warning: required schedules not found in archive: %s\n", strings.Join(missing, ", "))
		} else {
			fmt.Printf("All required schedules present; run: callreport import --dir %s --period %s\n", fetchDest, period)
		}

		return nil
	},
}

// bulkArchiveName builds the CDR's published archive filename for a
// quarter end, e.g. "FFIEC CDR Call Bulk All Schedules 03312025.zip".
func bulkArchiveName(period model.Period) string {
	t := period.Time()
	return fmt.Sprintf("FFIEC CDR Call Bulk All Schedules %02d%02d%d.zip",
		int(t.Month()), t.Day(), t.Year())
}

func init() {
	fetchCmd.Flags().StringVar(&fetchPeriod, "period", "", "reporting period, YYYY-MM-DD quarter end (required)")
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "archive URL override (https:// or ftp://)")
	fetchCmd.Flags().StringVar(&fetchDest, "dest", "data", "destination directory for the unpacked schedules")
	fetchCmd.MarkFlagRequired("period") //nolint:errcheck
	rootCmd.AddCommand(fetchCmd)
}
