// Package api implements the HTTP surface: public school/review endpoints,
// tracking endpoints and the admin tracker routes, all on echo.
package api

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/glats-richard/eigoonline/internal/conf"
	"github.com/glats-richard/eigoonline/internal/content"
	"github.com/glats-richard/eigoonline/internal/datastore"
	"github.com/glats-richard/eigoonline/internal/logging"
	"github.com/glats-richard/eigoonline/internal/merge"
	"github.com/glats-richard/eigoonline/internal/observability"
	"github.com/glats-richard/eigoonline/internal/webhook"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings
	Content  *content.Store
	Merger   *merge.Merger
	Notifier *webhook.Notifier

	metrics     *observability.Metrics
	mergedCache *cache.Cache
	apiLogger   *slog.Logger
	startTime   time.Time
}

const mergedListCacheKey = "schools:merged"

// New creates the API controller and registers all routes on e.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	store *content.Store, notifier *webhook.Notifier,
	metrics *observability.Metrics) *Controller {

	e.IPExtractor = ipExtractorFromCloudflareHeader

	c := &Controller{
		Echo:        e,
		Group:       e.Group("/api/v1"),
		DS:          ds,
		Settings:    settings,
		Content:     store,
		Notifier:    notifier,
		metrics:     metrics,
		mergedCache: cache.New(30*time.Second, time.Minute),
		apiLogger:   logging.ForService("api"),
		startTime:   time.Now(),
	}
	c.Merger = merge.New(store, datastore.PatchSource(ds))

	if metrics != nil && notifier != nil {
		notifier.SetObserver(func(outcome string) {
			metrics.WebhookDeliveries.WithLabelValues(outcome).Inc()
		})
	}

	e.Use(middleware.Recover())

	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Echo.GET("/healthz", c.HealthCheck)
	if c.Settings.Metrics.Enabled && c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	c.initSchoolRoutes()
	c.initReviewRoutes()
	c.initTrackingRoutes()
	c.initTrackerRoutes()
	c.initWebhookRoutes()
}

// HealthCheck reports process and database health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(c.startTime).String(),
		"schools":   c.Content.Len(),
	}

	dbStatus := "unconfigured"
	if c.DS != nil {
		dbStatus = "connected"
		if _, err := c.DS.ListOverrides(); err != nil {
			dbStatus = "disconnected"
			response["database_error"] = err.Error()
		}
	}
	response["database_status"] = dbStatus

	return ctx.JSON(http.StatusOK, response)
}

// ErrorResponse is the JSON error envelope returned by every handler.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an API error response with a fresh correlation id.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// HandleError logs err with request context and replies with the error
// envelope.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)
	c.apiLogger.Error("request failed",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", resp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	)
	return ctx.JSON(code, resp)
}

// generateCorrelationID creates a short random identifier for error tracking.
func generateCorrelationID() string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano()%100000000)
	}
	for i := range b {
		b[i] = chars[int(b[i])%len(chars)]
	}
	return string(b)
}

// invalidateMergedCache drops cached merged listings after any override
// mutation.
func (c *Controller) invalidateMergedCache() {
	c.mergedCache.Flush()
}

// ipExtractorFromCloudflareHeader resolves the client IP, preferring the
// Cloudflare header, then X-Forwarded-For, then X-Real-IP, then the socket
// address.
func ipExtractorFromCloudflareHeader(req *http.Request) string {
	if cfIP := req.Header.Get("CF-Connecting-IP"); cfIP != "" {
		if ip := net.ParseIP(cfIP); ip != nil {
			return ip.String()
		}
	}
	if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
		for part := range strings.SplitSeq(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}
	if xri := req.Header.Get(echo.HeaderXRealIP); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}
	remoteAddr, _, _ := net.SplitHostPort(req.RemoteAddr)
	if ip := net.ParseIP(remoteAddr); ip != nil {
		return ip.String()
	}
	return remoteAddr
}

// safeReturnTo validates a caller-supplied redirect target. Only same-origin
// relative paths pass; everything else falls back.
func safeReturnTo(target, fallback string) string {
	if target == "" {
		return fallback
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return fallback
	}
	if strings.ContainsAny(target, "\\\r\n") {
		return fallback
	}
	return target
}
