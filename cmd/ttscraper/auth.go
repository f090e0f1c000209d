package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ttscraper/pkg/credentials"
	"ttscraper/pkg/ui"
)

var authProvider string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the CAPTCHA solver token",
	Long: `Manage the CAPTCHA solver API key.

The key is stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables TTSCRAPER_CAPTCHA_TOKEN / RECAPTCHA_TOKEN (read only)`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the CAPTCHA solver token",
	Example: `  # Interactive, input is hidden
  ttscraper auth set

  # Non-interactive
  echo "$KEY" | ttscraper auth set --provider 2captcha`,
	Args: cobra.NoArgs,
	RunE: runAuthSet,
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored token, masked",
	Args:  cobra.NoArgs,
	RunE:  runAuthShow,
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE:  runAuthClear,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd, authShowCmd, authClearCmd)

	authCmd.PersistentFlags().StringVar(&authProvider, "provider", "2captcha", "CAPTCHA solver provider")
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		credentials.ShowTokenGuide(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), "\nAPI key (hidden): ")
	}

	value, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if value == "" {
		return errors.New("token is required")
	}

	if err := manager.Store(&credentials.Token{Provider: authProvider, Value: value}); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Token for %s stored", authProvider))
	return nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	token, err := manager.Retrieve(authProvider)
	if err != nil {
		ui.PrintWarning("No token stored", authProvider)
		return nil
	}

	safe := credentials.Sanitize(token)
	ui.PrintInfo("Provider", safe.Provider)
	ui.PrintInfo("Token", safe.Value)
	if !safe.LastModified.IsZero() {
		ui.PrintInfo("Updated", safe.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runAuthClear(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if err := manager.Delete(authProvider); err != nil {
		if errors.Is(err, credentials.ErrTokenNotFound) {
			ui.PrintWarning("No token stored", authProvider)
			return nil
		}
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Token for %s removed", authProvider))
	return nil
}

// readSecret reads a line from stdin without echo when stdin is a terminal
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
