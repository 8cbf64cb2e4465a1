// Package webhook delivers best-effort notifications about newly submitted
// reviews to an external automation endpoint (typically a Google Apps Script
// bridge feeding a moderation spreadsheet).
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/glats-richard/eigoonline/internal/logging"
)

const (
	userAgent      = "Eigoonline-Review-Webhook/1.0"
	requestTimeout = 10 * time.Second
)

// Notifier sends review events to the configured endpoint. Delivery is
// fire-and-forget: failures are logged, never surfaced to the submitting
// client.
type Notifier struct {
	endpoint string
	client   *http.Client
	log      *slog.Logger
	observer func(outcome string)
}

// ReviewEvent is the payload for a review submission notification.
type ReviewEvent struct {
	SchoolID    string
	Body        string
	SubmittedAt time.Time
}

// New returns a Notifier for the given endpoint URL. An empty endpoint
// yields a disabled notifier whose methods are no-ops.
func New(endpoint string) *Notifier {
	return &Notifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
		log:      logging.ForService("webhook"),
	}
}

// Enabled reports whether an endpoint is configured. Safe on a nil
// receiver so callers can treat an absent notifier as disabled.
func (n *Notifier) Enabled() bool { return n != nil && n.endpoint != "" }

// SetObserver registers a callback invoked with "ok" or "error" after each
// background delivery attempt. Used to feed delivery counters.
func (n *Notifier) SetObserver(fn func(outcome string)) { n.observer = fn }

func (n *Notifier) observe(outcome string) {
	if n.observer != nil {
		n.observer(outcome)
	}
}

// NotifyReview delivers a review event in the background. It returns
// immediately; the HTTP exchange happens on its own goroutine with its own
// timeout so a slow endpoint never blocks the submission path.
func (n *Notifier) NotifyReview(ev ReviewEvent) {
	if !n.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := n.send(ctx, ev); err != nil {
			n.log.Warn("review webhook delivery failed",
				"school_id", ev.SchoolID, "error", err)
			n.observe("error")
			return
		}
		n.log.Debug("review webhook delivered", "school_id", ev.SchoolID)
		n.observe("ok")
	}()
}

func (n *Notifier) send(ctx context.Context, ev ReviewEvent) error {
	u, err := url.Parse(n.endpoint)
	if err != nil {
		return fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	q := u.Query()
	q.Set("source", "review")
	q.Set("school_id", ev.SchoolID)
	q.Set("body", ev.Body)
	q.Set("submitted_at", strconv.FormatInt(ev.SubmittedAt.UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Ping performs a synchronous connectivity check against the endpoint and
// returns the HTTP status code it answered with.
func (n *Notifier) Ping(ctx context.Context) (int, error) {
	if !n.Enabled() {
		return 0, fmt.Errorf("webhook endpoint not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	u, err := url.Parse(n.endpoint)
	if err != nil {
		return 0, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	q := u.Query()
	q.Set("source", "ping")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling webhook: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
