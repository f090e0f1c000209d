package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ttscraper/internal/server"
	"ttscraper/pkg/models"
	"ttscraper/pkg/scraper"
	"ttscraper/pkg/ui"
)

var (
	scrapeJSON       bool
	scrapeHeadless   bool
	scrapeBrowserURL string
	scrapePostCap    int
	scrapeToken      string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <handle>",
	Short: "Scrape one profile and print the result",
	Long: `Scrape a single profile without starting the HTTP service.

The handle may be given bare, with a leading @, or as a full profile URL.
With --json the output is the same payload POST /scrape returns.`,
	Example: `  ttscraper scrape someone
  ttscraper scrape @someone --post-cap 10
  ttscraper scrape https://www.tiktok.com/@someone --json`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().BoolVar(&scrapeJSON, "json", false, "print the result as JSON")
	scrapeCmd.Flags().BoolVar(&scrapeHeadless, "headless", true, "run the browser headless")
	scrapeCmd.Flags().StringVar(&scrapeBrowserURL, "browser-url", "", "DevTools URL of an already running browser")
	scrapeCmd.Flags().IntVar(&scrapePostCap, "post-cap", 0, "posts to visit (default 5)")
	scrapeCmd.Flags().StringVar(&scrapeToken, "captcha-token", "", "CAPTCHA solver API key")
}

func runScrape(cmd *cobra.Command, args []string) error {
	handle := scraper.NormalizeHandle(args[0])
	if handle == "" {
		return fmt.Errorf("invalid handle %q", args[0])
	}

	flags := map[string]interface{}{
		"browser-url":   scrapeBrowserURL,
		"post-cap":      scrapePostCap,
		"captcha-token": scrapeToken,
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = scrapeHeadless
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log, err := setup(cfg)
	if err != nil {
		return err
	}

	if !scrapeJSON {
		ui.PrintInfo("Target profile", handle)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := newScraper(cfg, log).ScrapeProfile(ctx, handle)

	if scrapeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(server.NewScrapeData(result)); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else if err := ui.PrintResult(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if result.Status != models.StatusComplete {
		return fmt.Errorf("scrape ended with status %s", result.Status)
	}
	return nil
}
