package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"ttscraper/pkg/browser"
	"ttscraper/pkg/config"
	"ttscraper/pkg/credentials"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/scraper"
	"ttscraper/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile string
	logLevel   string
	logFormat  string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "ttscraper",
	Short: "Collect engagement metrics from TikTok profiles",
	Long: `ttscraper drives a real browser through a TikTok profile and its most
recent posts, and reports followers plus per-post views, likes, comments,
saves, shares and the top-level comments.

Run it as an HTTP service with 'ttscraper serve', or scrape a single
profile from the terminal with 'ttscraper scrape <handle>'.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColor)
	},
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./ttscraper.yaml or ~/.config/ttscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`ttscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration with the global flags plus the command's own
// changed flags layered on top
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFormat != "" {
		flags["log-format"] = logFormat
	}
	return config.Load(configFile, flags)
}

// setup initializes logging and resolves the captcha token from the credential
// store when neither a flag nor the environment supplied one
func setup(cfg *config.Config) (logger.Logger, error) {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	if cfg.Captcha.Token == "" {
		manager, err := credentials.NewManager()
		if err != nil {
			log.WithError(err).Warn("Credential store unavailable")
		} else {
			cfg.Captcha.Token = manager.Resolve("", cfg.Captcha.Provider)
		}
	}

	return log, nil
}

func newScraper(cfg *config.Config, log logger.Logger) *scraper.Scraper {
	antiBot := browser.NewAntiBot(cfg.Browser, cfg.Captcha)
	launcher := browser.NewRodLauncher(cfg.Browser, antiBot, log)
	return scraper.New(launcher, antiBot, cfg, log)
}
