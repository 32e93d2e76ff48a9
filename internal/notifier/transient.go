package notifier

import (
	"errors"
	"net"
	"net/url"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/pkg/logger"
)

// shouldRetry reports whether a Telegram call failed transiently: network
// timeouts, dial failures, flood control and 5xx answers.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var floodErr telebot.FloodError
	if errors.As(err, &floodErr) {
		return true
	}

	var apiErr *telebot.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == 429
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return shouldRetry(urlErr.Err)
		}
	}

	return false
}

// floodWait returns the pause Telegram demands after a 429, zero otherwise.
func floodWait(err error) time.Duration {
	var floodErr telebot.FloodError
	if errors.As(err, &floodErr) && floodErr.RetryAfter > 0 {
		return time.Duration(floodErr.RetryAfter) * time.Second
	}
	return 0
}

// sanitizeErrorMessage keeps the bot token out of logged error texts.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return logger.Redact(err.Error())
}
