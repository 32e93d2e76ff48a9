package bot

import (
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/bot/handlers"
)

// Router maps an update to its route key and runs the matching handler.
// Middlewares are composed when a route is added, so every Use call must
// precede the Handle calls it should apply to. Setup is not safe for
// concurrent use; routing is.
type Router struct {
	chain  []handlers.Middleware
	routes map[string]handlers.Handler
	log    *slog.Logger
}

func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{routes: make(map[string]handlers.Handler), log: log}
}

// Use appends mw to the chain. The first middleware added runs outermost.
func (r *Router) Use(mw ...handlers.Middleware) {
	r.chain = append(r.chain, mw...)
}

// Handle binds h, wrapped in the current chain, to a route key: a command
// such as CommandStart or RouteWebApp.
func (r *Router) Handle(key string, h handlers.Handler) {
	for i := len(r.chain) - 1; i >= 0; i-- {
		h = r.chain[i](h)
	}
	r.routes[key] = h
}

// RegisterCommand binds a command handler.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.Handle(strings.ToLower(cmd), h)
}

// RegisterWebApp binds the handler for web_app_data messages.
func (r *Router) RegisterWebApp(h handlers.Handler) {
	r.Handle(RouteWebApp, h)
}

// Route runs the handler for c. Updates without a route are dropped.
func (r *Router) Route(c telebot.Context) error {
	key := handlers.Route(c)
	h, ok := r.routes[key]
	if !ok {
		if key == RouteWebApp {
			r.log.Warn("web app data received without handler")
		}
		return nil
	}
	return h(c)
}
