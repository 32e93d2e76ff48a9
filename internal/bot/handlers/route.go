package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"
)

// Route keys shared by the router, logs and metrics labels.
const (
	RouteWebApp  = "web_app_data"
	RouteText    = "text"
	RouteUnknown = "unknown"
)

// Route names an update by its kind: the command it starts with, web app
// data or plain text. Payloads and free text never leak into the key.
func Route(c telebot.Context) string {
	if c == nil {
		return RouteUnknown
	}
	if msg := c.Message(); msg != nil && msg.WebAppData != nil {
		return RouteWebApp
	}

	text := c.Text()
	if cmd := CommandName(text); cmd != "" {
		return cmd
	}
	if text != "" {
		return RouteText
	}
	return RouteUnknown
}

// CommandName returns "/cmd" for "/cmd@bot payload", or "" for plain text.
func CommandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}

	cmd, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	return strings.ToLower(cmd)
}
