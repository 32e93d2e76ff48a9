package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/funnel"
)

// webAppKeyboard puts one Web App button per row on a one-time reply keyboard.
func (b *Builder) webAppKeyboard(actions []funnel.Action) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}

	rows := make([]telebot.Row, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, m.Row(m.WebApp(a.Label, &telebot.WebApp{URL: b.WebAppURL(a.URL, a.Code)})))
	}
	m.Reply(rows...)
	return m
}

// linkKeyboard puts one URL button per row on an inline keyboard.
func linkKeyboard(actions []funnel.Action) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}

	rows := make([]telebot.Row, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, m.Row(m.URL(a.Label, a.URL)))
	}
	m.Inline(rows...)
	return m
}
