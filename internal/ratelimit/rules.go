package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/Proton-105/funnel-bot/pkg/config"
)

// Rules is the parsed rate limit configuration. A nil *Rules is disabled.
type Rules struct {
	enabled   bool
	whitelist map[int64]struct{}
	perUser   Rule
	err       error
}

// NewRules parses cfg. An invalid per-user window is kept as an error and
// reported by PerUser.
func NewRules(cfg config.RateLimitConfig) *Rules {
	r := &Rules{
		enabled:   cfg.Enabled,
		whitelist: make(map[int64]struct{}, len(cfg.Whitelist)),
	}
	for _, id := range cfg.Whitelist {
		r.whitelist[id] = struct{}{}
	}
	r.perUser, r.err = parseRule(cfg.PerUser)
	return r
}

func (r *Rules) Enabled() bool {
	return r != nil && r.enabled
}

func (r *Rules) IsWhitelisted(userID int64) bool {
	if r == nil {
		return false
	}
	_, ok := r.whitelist[userID]
	return ok
}

// PerUser returns the limit applied to each user's updates.
func (r *Rules) PerUser() (Rule, error) {
	if r == nil {
		return Rule{}, errors.New("rate limit rules are not configured")
	}
	return r.perUser, r.err
}

func parseRule(cfg config.RateLimitRule) (Rule, error) {
	if cfg.Window == "" {
		return Rule{}, errors.New("window duration is not set")
	}

	window, err := time.ParseDuration(cfg.Window)
	switch {
	case err != nil:
		return Rule{}, fmt.Errorf("parse window %q: %w", cfg.Window, err)
	case window <= 0:
		return Rule{}, fmt.Errorf("window %q must be positive", cfg.Window)
	}
	return Rule{Limit: cfg.Limit, Window: window}, nil
}
