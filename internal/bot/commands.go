package bot

import "github.com/Proton-105/funnel-bot/internal/bot/handlers"

// Route keys understood by Router.
const (
	CommandStart = "/start"
	RouteWebApp  = handlers.RouteWebApp
)
