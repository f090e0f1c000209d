// Package ui renders terminal output for the ttscraper CLI.
package ui

import (
	"fmt"
	"io"
	"os"
)

// ASCIILogo is printed by interactive commands
const ASCIILogo = `
  ╔════════════════════════════════════════════╗
  ║  ▀█▀ ▀█▀   ▄▀▀ ▄▀▀ █▀▄ ▄▀▄ █▀▄ ██▀ █▀▄     ║
  ║   █   █    ▄██ ▀▄▄ █▀▄ █▀█ █▀  █▄▄ █▀▄     ║
  ║        PROFILE ENGAGEMENT EXTRACTOR         ║
  ╚════════════════════════════════════════════╝
`

// Output is where the Print helpers write. Tests swap it for a buffer.
var Output io.Writer = os.Stdout

var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

var noColor bool

// SetNoColor turns ANSI colors off for every helper in this package
func SetNoColor(disabled bool) {
	noColor = disabled
}

func colorize(colorString string) func(string) string {
	return func(text string) string {
		if noColor {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints msg in red, followed by the first arg as detail
func PrintError(msg string, args ...interface{}) {
	fmt.Fprintln(Output, Red(withDetail(msg, args)))
}

func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a "label: value" line
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

func PrintWarning(msg string, args ...interface{}) {
	fmt.Fprintln(Output, Yellow(withDetail(msg, args)))
}

func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

func withDetail(msg string, args []interface{}) string {
	if len(args) == 0 || args[0] == "" {
		return msg
	}
	return msg + ": " + fmt.Sprintf("%v", args[0])
}
