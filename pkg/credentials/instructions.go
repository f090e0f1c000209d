package credentials

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide explains where the CAPTCHA solver token comes from and how it is used
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "CAPTCHA SOLVER TOKEN")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "TikTok sometimes shows a CAPTCHA before a profile loads. ttscraper can")
	fmt.Fprintln(w, "hand it to a solving service when you provide that service's API key.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Create an account with your solver (default provider: 2captcha)")
	fmt.Fprintln(w, "  2. Copy the API key from the account dashboard")
	fmt.Fprintln(w, "  3. Paste it at the prompt below")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The key is kept in the system keychain when one is available, otherwise")
	fmt.Fprintln(w, "in an encrypted file under your config directory. TTSCRAPER_CAPTCHA_TOKEN")
	fmt.Fprintln(w, "or RECAPTCHA_TOKEN in the environment take precedence over the stored key.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Without a key, scraping still runs but CAPTCHAs are left unsolved.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
