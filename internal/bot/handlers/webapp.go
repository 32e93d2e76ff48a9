package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/funnel-bot/internal/errors"
	"github.com/Proton-105/funnel-bot/internal/funnel"
)

// NewWebAppHandler returns the handler for web_app_data messages sent by the
// checkout landing page.
func NewWebAppHandler(completer CheckoutCompleter, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		msg := c.Message()
		if msg == nil || msg.WebAppData == nil {
			return nil
		}
		if completer == nil {
			log.Error("funnel not configured for web app handler")
			return nil
		}

		userID, chatID := identity(c)
		outcome := completer.Complete(context.Background(), userID, chatID, msg.WebAppData.Data)

		if outcome == funnel.CompleteIgnored {
			return apperrors.NewValidationError("web app data without resolvable sender or chat")
		}
		return nil
	}
}
