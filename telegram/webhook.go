package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/mymmrac/telego"

	bd "github.com/bjaus/botdispatch"
)

// SecretHeader carries the secret token configured with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxWebhookBody = 1 << 20

// Dispatcher accepts converted updates. *botdispatch.Router implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, u *bd.Update)
}

// Webhook is an http.Handler receiving updates pushed by Telegram. The kind
// is detected on the raw body first; kinds the router does not route are
// acknowledged without decoding.
type Webhook struct {
	dispatcher Dispatcher
	secret     string
	accept     bd.Discriminator
	logger     *slog.Logger
	base       context.Context
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithSecret rejects requests without the matching secret header.
func WithSecret(secret string) WebhookOption {
	return func(w *Webhook) { w.secret = secret }
}

// WithAccept drops raw updates d does not match before they are decoded.
// Dropped updates are still acknowledged so Telegram does not redeliver.
func WithAccept(d bd.Discriminator) WebhookOption {
	return func(w *Webhook) { w.accept = d }
}

// WithBaseContext sets the context handlers run under. Cancel it to stop
// handlers still blocked in Await. Defaults to context.Background.
func WithBaseContext(ctx context.Context) WebhookOption {
	return func(w *Webhook) { w.base = ctx }
}

// WithWebhookLogger sets the logger. The default discards everything.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// NewWebhook creates a webhook handler feeding d.
func NewWebhook(d Dispatcher, opts ...WebhookOption) *Webhook {
	w := &Webhook{dispatcher: d, logger: slog.New(slog.DiscardHandler), base: context.Background()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if w.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(w.secret)) != 1 {
		http.Error(rw, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(rw, "read body", http.StatusBadRequest)
		return
	}

	raw, err := bd.KindOf(body)
	if err != nil {
		w.logger.Warn("rejecting webhook update", "error", err)
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	if raw.Kind == bd.KindUnknown {
		w.logger.Debug("ignoring update kind", "update_id", raw.ID)
		rw.WriteHeader(http.StatusOK)
		return
	}

	if w.accept != nil && !w.accept.Match(raw.View) {
		w.logger.Debug("webhook update not accepted", "update_id", raw.ID, "kind", raw.Kind.String())
		rw.WriteHeader(http.StatusOK)
		return
	}

	var u telego.Update
	if err := json.Unmarshal(body, &u); err != nil {
		w.logger.Warn("decode webhook update", "update_id", raw.ID, "error", err)
		http.Error(rw, "decode update", http.StatusBadRequest)
		return
	}

	// Telegram waits for the response before sending the next update, so
	// handlers run detached from the request.
	w.dispatcher.Dispatch(w.base, FromTelego(u))
	rw.WriteHeader(http.StatusOK)
}
