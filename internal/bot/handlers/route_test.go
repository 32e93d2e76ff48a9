package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"
)

func TestRoute(t *testing.T) {
	b, err := telebot.NewBot(telebot.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)

	text := func(s string) telebot.Context {
		return b.NewContext(telebot.Update{Message: &telebot.Message{ID: 1, Text: s}})
	}

	assert.Equal(t, "/start", Route(text("/start@funnel_bot promo")))
	assert.Equal(t, RouteText, Route(text("hello")))
	assert.Equal(t, RouteUnknown, Route(text("")))
	assert.Equal(t, RouteWebApp, Route(b.NewContext(telebot.Update{Message: &telebot.Message{
		ID:         1,
		WebAppData: &telebot.WebAppData{Data: "{}"},
	}})))
	assert.Equal(t, RouteUnknown, Route(nil))
}
