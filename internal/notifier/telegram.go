package notifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/funnel-bot/internal/errors"
	"github.com/Proton-105/funnel-bot/internal/funnel"
	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

// Sender is the part of *telebot.Bot used for delivery.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Telegram implements funnel.Notifier on top of a Dispatcher.
type Telegram struct {
	dispatcher *Dispatcher
	sender     Sender
	keyboards  *keyboard.Builder
	breaker    *apperrors.CircuitBreaker
	log        *slog.Logger
}

var _ funnel.Notifier = (*Telegram)(nil)

// NewTelegram returns a notifier delivering through sender.
func NewTelegram(dispatcher *Dispatcher, sender Sender, keyboards *keyboard.Builder, log *slog.Logger) *Telegram {
	if log == nil {
		log = slog.Default()
	}

	return &Telegram{
		dispatcher: dispatcher,
		sender:     sender,
		keyboards:  keyboards,
		breaker:    apperrors.NewCircuitBreaker("telegram", apperrors.DefaultBreaker),
		log:        log.With(slog.String("component", "notifier")),
	}
}

// Breaker exposes the circuit breaker guarding the Telegram API.
func (t *Telegram) Breaker() *apperrors.CircuitBreaker {
	return t.breaker
}

// Notify enqueues msg for chatID and returns immediately.
func (t *Telegram) Notify(ctx context.Context, chatID int64, msg funnel.Message) error {
	err := t.dispatcher.Enqueue(ctx, chatID, string(msg.Kind), func(ctx context.Context) error {
		return t.deliver(ctx, chatID, msg)
	})
	if err != nil {
		metrics.RecordNotification(string(msg.Kind), "rejected")
		return err
	}
	return nil
}

// deliver sends the photo, then the text with its keyboard. A failed photo
// does not keep the text from being sent.
func (t *Telegram) deliver(ctx context.Context, chatID int64, msg funnel.Message) error {
	chat := telebot.ChatID(chatID)
	kind := string(msg.Kind)

	if msg.Photo != "" {
		err := t.call(ctx, func() error {
			_, err := t.sender.Send(chat, photo(msg.Photo))
			return err
		})
		if err != nil {
			metrics.RecordNotification(kind+"_photo", "failed")
			t.log.Warn("photo not delivered",
				slog.String("kind", kind),
				slog.Int64("chat_id", chatID),
				slog.String("error", sanitizeErrorMessage(err)),
			)
		} else {
			metrics.RecordNotification(kind+"_photo", "sent")
		}
	}

	if msg.Text == "" {
		return nil
	}

	opts := &telebot.SendOptions{DisableWebPagePreview: true}
	if t.keyboards != nil {
		opts.ReplyMarkup = t.keyboards.Render(msg)
	}

	err := t.call(ctx, func() error {
		_, err := t.sender.Send(chat, msg.Text, opts)
		return err
	})
	if err != nil {
		metrics.RecordNotification(kind, "failed")
		return err
	}

	metrics.RecordNotification(kind, "sent")
	return nil
}

var telegramRetry = apperrors.DefaultRetry.Named("telegram")

func (t *Telegram) call(ctx context.Context, fn func() error) error {
	return telegramRetry.Do(ctx, func() error {
		err := t.breaker.Call(fn)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, apperrors.ErrCircuitOpen), errors.Is(err, apperrors.ErrProbeLimit):
			return apperrors.NewExternalAPIError("telegram", err, false)
		}
		return apperrors.NewExternalAPIError("telegram", err, shouldRetry(err)).WithRetryAfter(floodWait(err))
	})
}

// photo accepts either an URL or a Telegram file_id.
func photo(ref string) *telebot.Photo {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return &telebot.Photo{File: telebot.FromURL(ref)}
	}
	return &telebot.Photo{File: telebot.File{FileID: ref}}
}
