// Package web serves the HTTP surface of the bot: the Web App landing pages
// that bridge the external checkout back into Telegram, probes and metrics.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/funnel-bot/internal/bot/keyboard"
	"github.com/Proton-105/funnel-bot/internal/health"
	"github.com/Proton-105/funnel-bot/internal/middleware"
	"github.com/Proton-105/funnel-bot/pkg/logger"
)

// Paths of the pages the checkout redirects to after payment.
const (
	ApprovedPath        = "/pagamento-aprovado"
	CheckoutSuccessPath = "/checkout/success"
)

const defaultCurrency = "USD"

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Probes answers liveness and readiness.
type Probes interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) (health.Report, error)
}

// Options configures the router.
type Options struct {
	Probes         Probes
	AllowedOrigins []string
}

// NewRouter builds the chi router with every route mounted.
func NewRouter(log *slog.Logger, opts Options) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	h := &handler{log: log, probes: opts.Probes}

	r := chi.NewRouter()
	r.Use(logger.Middleware)
	r.Use(middleware.New(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(opts.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/health", h.liveness)
	r.Get("/ready", h.readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get(keyboard.WebAppPath, h.webApp)
	r.Get(ApprovedPath, h.approved)
	r.Get(CheckoutSuccessPath, h.approved)

	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type handler struct {
	log    *slog.Logger
	probes Probes
}

func (h *handler) liveness(w http.ResponseWriter, r *http.Request) {
	if h.probes != nil {
		if err := h.probes.Liveness(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readinessResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Checked    time.Time         `json:"checked_at"`
}

func (h *handler) readiness(w http.ResponseWriter, r *http.Request) {
	resp := readinessResponse{Status: "ready", Components: map[string]string{}, Checked: time.Now().UTC()}
	if h.probes == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	report, err := h.probes.Readiness(r.Context())
	if report.Components != nil {
		resp.Components = report.Components
	}
	if err != nil {
		resp.Status = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
