// Package keyboard renders funnel actions as Telegram keyboards.
package keyboard

import (
	"log/slog"
	"net/url"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/funnel"
)

// WebAppPath is the landing route that forwards the Web App to a checkout.
const WebAppPath = "/webapp"

// Builder creates keyboards for funnel messages.
//
// Checkout actions become reply keyboard Web App buttons when the public base
// URL is HTTPS, because only those buttons can deliver web_app_data back to the
// bot. Otherwise they degrade to inline URL buttons pointing straight at the
// checkout.
type Builder struct {
	baseURL string
	webApp  bool
	log     *slog.Logger
}

// NewBuilder returns a Builder for the given public base URL.
func NewBuilder(baseURL string, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	webApp := strings.HasPrefix(strings.ToLower(baseURL), "https://")
	if !webApp {
		log.Warn("web app base url is not https, checkout buttons fall back to plain links",
			slog.String("base_url", baseURL))
	}

	return &Builder{baseURL: baseURL, webApp: webApp, log: log}
}

// WebAppEnabled reports whether checkout actions open inside the Web App.
func (b *Builder) WebAppEnabled() bool {
	return b.webApp
}

// Render returns the markup for msg, or nil when it carries no actions.
func (b *Builder) Render(msg funnel.Message) *telebot.ReplyMarkup {
	if len(msg.Actions) == 0 {
		return nil
	}

	if msg.Markup == funnel.MarkupCheckout && b.webApp {
		return b.webAppKeyboard(msg.Actions)
	}
	return linkKeyboard(msg.Actions)
}

// WebAppURL wraps a checkout target in the landing page URL.
func (b *Builder) WebAppURL(target, code string) string {
	query := url.Values{}
	query.Set("target", target)
	if code != "" {
		query.Set("pkg", code)
	}

	return b.baseURL + WebAppPath + "?" + query.Encode()
}
