package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/funnel-bot/internal/errors"
	"github.com/Proton-105/funnel-bot/internal/funnel"
)

// NewStartHandler returns the /start handler. Replies are sent by the funnel
// through the notifier, never from here.
func NewStartHandler(starter FunnelStarter, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if starter == nil {
			log.Error("funnel not configured for start handler")
			return nil
		}

		userID, chatID := identity(c)
		outcome := starter.Start(context.Background(), userID, chatID)

		switch outcome {
		case funnel.StartIgnored:
			return apperrors.NewValidationError("start without resolvable sender or chat")
		case funnel.StartAlreadyCompleted:
			log.Info("start ignored for completed user", slog.Int64("user_id", userID))
		}
		return nil
	}
}
