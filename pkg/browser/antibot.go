package browser

import (
	"strings"
	"sync"

	"ttscraper/pkg/config"
	"ttscraper/pkg/logger"
)

// CaptchaSettings are handed to the solver integration untouched
type CaptchaSettings struct {
	Provider       string
	Token          string
	VisualFeedback bool
}

// AntiBot holds the anti-detection configuration shared by every session.
// It is built once at startup and only read afterwards.
type AntiBot struct {
	stealth   bool
	userAgent string
	captcha   CaptchaSettings

	once sync.Once
}

// NewAntiBot creates the anti-detection configuration from the loaded config
func NewAntiBot(browserCfg config.BrowserConfig, captchaCfg config.CaptchaConfig) *AntiBot {
	ua := browserCfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	return &AntiBot{
		stealth:   browserCfg.Stealth,
		userAgent: ua,
		captcha: CaptchaSettings{
			Provider:       captchaCfg.Provider,
			Token:          captchaCfg.Token,
			VisualFeedback: captchaCfg.VisualFeedback,
		},
	}
}

// Init logs the effective settings. Only the first call has any effect.
func (a *AntiBot) Init(log logger.Logger) {
	a.once.Do(func() {
		log.InfoWithFields("Anti-bot configured", map[string]interface{}{
			"stealth":    a.stealth,
			"user_agent": a.userAgent,
		})
		if a.captcha.Provider == "" {
			return
		}
		if a.captcha.Token == "" {
			log.WarnWithFields("Captcha provider configured without a token", map[string]interface{}{
				"provider": a.captcha.Provider,
			})
			return
		}
		log.InfoWithFields("Captcha provider configured", map[string]interface{}{
			"provider":        a.captcha.Provider,
			"token":           MaskToken(a.captcha.Token),
			"visual_feedback": a.captcha.VisualFeedback,
		})
	})
}

// Stealth reports whether pages get the stealth evasions injected
func (a *AntiBot) Stealth() bool { return a.stealth }

// UserAgent returns the user agent every page is set to
func (a *AntiBot) UserAgent() string { return a.userAgent }

// MaskToken keeps the last four characters of a secret
func MaskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
