package main

import (
	"context"

	"github.com/spf13/cobra"

	"ttscraper/internal/server"
)

var (
	servePort        string
	serveMaxSessions int
	serveHeadless    bool
	serveBrowserURL  string
	servePostCap     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP scraping service",
	Long: `Start the HTTP service.

Endpoints:
  GET  /health   liveness probe
  POST /scrape   body {"url": "<handle or profile URL>"}

Each scrape opens its own browser. --max-sessions bounds how many run at once;
requests beyond that wait for a free slot.`,
	Example: `  ttscraper serve
  ttscraper serve --port 8080 --max-sessions 4
  ttscraper serve --browser-url ws://127.0.0.1:9222/devtools/browser/...`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (default 3000)")
	serveCmd.Flags().IntVar(&serveMaxSessions, "max-sessions", 0, "concurrent browser sessions (default 2)")
	serveCmd.Flags().BoolVar(&serveHeadless, "headless", true, "run the browser headless")
	serveCmd.Flags().StringVar(&serveBrowserURL, "browser-url", "", "DevTools URL of an already running browser")
	serveCmd.Flags().IntVar(&servePostCap, "post-cap", 0, "posts visited per profile (default 5)")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"port":         servePort,
		"max-sessions": serveMaxSessions,
		"browser-url":  serveBrowserURL,
		"post-cap":     servePostCap,
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = serveHeadless
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log, err := setup(cfg)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"version":      version,
		"max_sessions": cfg.Server.MaxSessions,
		"post_cap":     cfg.Scrape.PostCap,
		"headless":     cfg.Browser.Headless,
	}).Info("ttscraper starting")

	srv := server.New(cfg.Server, newScraper(cfg, log), log)
	return srv.Run(context.Background())
}
