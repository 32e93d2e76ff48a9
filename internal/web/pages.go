package web

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type webAppPage struct {
	Target  string
	Package string
}

// checkoutResult is forwarded to the bot with Telegram.WebApp.sendData. The
// page adds tg_user_id and, when absent here, the pkg remembered by /webapp.
type checkoutResult struct {
	Source   string `json:"source"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	Package  string `json:"pkg,omitempty"`
	OrderID  string `json:"order_id,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Currency string `json:"currency"`
}

type successPage struct {
	Payload checkoutResult
}

// webApp renders the page opened by a Web App button. It remembers the
// selected package and forwards the webview to the checkout.
func (h *handler) webApp(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	target, ok := checkoutTarget(q.Get("target"))
	if !ok {
		http.Error(w, "invalid target", http.StatusBadRequest)
		return
	}

	h.render(w, "webapp.html", webAppPage{Target: target, Package: strings.TrimSpace(q.Get("pkg"))})
}

// approved renders the page the checkout redirects to after payment.
func (h *handler) approved(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	h.render(w, "success.html", successPage{Payload: checkoutResult{
		Source:   "webapp",
		Type:     "payment",
		Status:   "approved",
		Package:  strings.TrimSpace(q.Get("pkg")),
		OrderID:  firstParam(q, "order_id", "tx", "transaction_id"),
		Amount:   firstParam(q, "amount", "value"),
		Currency: currency(q.Get("currency")),
	}})
}

func (h *handler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// checkoutTarget accepts absolute http(s) URLs only.
func checkoutTarget(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", false
	}
	return u.String(), true
}

func firstParam(q url.Values, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
	}
	return ""
}

func currency(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultCurrency
	}
	return raw
}
