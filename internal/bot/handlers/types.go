package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/funnel"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// FunnelStarter presents the offers on /start.
type FunnelStarter interface {
	Start(ctx context.Context, userID, chatID int64) funnel.StartOutcome
}

// CheckoutCompleter consumes the checkout result sent by the Web App.
type CheckoutCompleter interface {
	Complete(ctx context.Context, userID, chatID int64, raw string) funnel.CompleteOutcome
}

// identity extracts the user and chat of an update. Zero values mean the
// update has no resolvable originator.
func identity(c telebot.Context) (userID, chatID int64) {
	if c == nil {
		return 0, 0
	}
	if sender := c.Sender(); sender != nil {
		userID = sender.ID
	}
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	return userID, chatID
}
