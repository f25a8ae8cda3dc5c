package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"veritas/internal/repository"
	"veritas/internal/scraper"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := repository.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		return repository.Migrate(db, cfg.Database, logger)
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <company-id>",
	Short: "Archive the documents of one company and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid company id %q", args[0])
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.archives.ArchiveAll(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := printJSON(cmd, res); err != nil {
			return err
		}
		if !res.OverallSuccess {
			return fmt.Errorf("no document archived: %s", strings.Join(res.Errors, ", "))
		}
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <url|file>",
	Short: "Fetch a page, or read a local file, and print its extracted text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		var markup []byte
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			fetcher, closeFetch := newFetcher(cfg.Fetcher, logger)
			defer closeFetch()

			resp, err := fetcher.Fetch(cmd.Context(), target)
			if err != nil {
				return err
			}
			markup = resp.Body
		} else {
			data, err := os.ReadFile(target)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", target, err)
			}
			markup = data
		}

		content := scraper.Extract(markup)
		return printJSON(cmd, map[string]any{
			"title":    content.Title,
			"text":     content.Text,
			"checksum": scraper.Checksum(content.Text),
		})
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
