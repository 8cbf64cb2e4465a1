package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/glats-richard/eigoonline/internal/datastore"
)

const (
	conversionRateWindow = time.Minute
	conversionRateLimit  = 5

	// clientTsMaxSkew bounds how far a client-supplied timestamp may drift
	// from server time before it is discarded.
	clientTsMaxSkew = 7 * 24 * time.Hour
)

// Risk reason tokens stored on flagged conversions.
const (
	riskMissingReferer = "missing_referer"
	riskMissingUA      = "missing_user_agent"
	riskIPRateHigh     = "ip_rate_1m_high"
)

// initTrackingRoutes registers the click redirect and the conversion
// postback endpoints.
func (c *Controller) initTrackingRoutes() {
	c.Group.GET("/track/click", c.TrackClick)
	c.Group.POST("/track/conversion", c.TrackConversion)
	c.Group.OPTIONS("/track/conversion", c.ConversionPreflight)
}

// clientIPInfo hashes the client IP for storage. The raw address never
// reaches the database.
func clientIPInfo(ctx echo.Context) (hash *string, version *int) {
	raw := ctx.RealIP()
	ip := net.ParseIP(raw)
	if ip == nil {
		return nil, nil
	}
	sum := sha256.Sum256([]byte(ip.String()))
	h := hex.EncodeToString(sum[:])
	v := 6
	if ip.To4() != nil {
		v = 4
	}
	return &h, &v
}

// TrackClick validates the outbound destination against the school's own
// link targets, records the click and redirects. Recording is best-effort:
// a broken database never strands the visitor.
func (c *Controller) TrackClick(ctx echo.Context) error {
	offerID := strings.TrimSpace(ctx.QueryParam("offer_id"))
	rawTo := strings.TrimSpace(ctx.QueryParam("to"))
	if offerID == "" || rawTo == "" {
		return c.HandleError(ctx, nil, "offer_id and to are required", http.StatusBadRequest)
	}

	rec, ok := c.Merger.MergedRecord(offerID)
	if !ok {
		return c.HandleError(ctx, nil, "unknown offer", http.StatusBadRequest)
	}

	to, err := url.Parse(rawTo)
	if err != nil || to.Scheme != "https" || to.Host == "" {
		return c.HandleError(ctx, err, "destination must be an absolute https URL", http.StatusBadRequest)
	}
	if !hostAllowed(to.Host, rec.LinkURLs()) {
		return c.HandleError(ctx, nil, "destination not registered for this offer", http.StatusBadRequest)
	}

	clickID := uuid.New().String()
	q := to.Query()
	q.Set("click_id", clickID)
	to.RawQuery = q.Encode()

	if c.DS != nil {
		ipHash, ipVersion := clientIPInfo(ctx)
		cl := &datastore.Click{
			OfferID:   offerID,
			ClickID:   clickID,
			URL:       to.String(),
			Referrer:  optionalHeader(ctx, "Referer"),
			UserAgent: optionalHeader(ctx, "User-Agent"),
			IPHash:    ipHash,
			IPVersion: ipVersion,
		}
		if err := c.DS.SaveClick(cl); err != nil {
			c.apiLogger.Warn("failed to record click", "offer_id", offerID, "error", err)
		} else if c.metrics != nil {
			c.metrics.ClicksTracked.Inc()
		}
	}

	return ctx.Redirect(http.StatusFound, to.String())
}

// hostAllowed reports whether host matches one of the URLs registered on the
// school record.
func hostAllowed(host string, registered []string) bool {
	for _, raw := range registered {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if strings.EqualFold(u.Host, host) {
			return true
		}
	}
	return false
}

// conversionPayload is the JSON body of a conversion postback.
type conversionPayload struct {
	OfferID    string   `json:"offer_id"`
	EventID    string   `json:"event_id"`
	StudentID  string   `json:"student_id"`
	ClientTsMs *int64   `json:"client_ts_ms"`
	Reward     *float64 `json:"reward"`
	Payout     *float64 `json:"payout"`
	Amount     *float64 `json:"amount"`
	Commission *float64 `json:"commission"`
	PageURL    string   `json:"page_url"`
}

// ConversionPreflight answers the CORS preflight for browser-issued
// postbacks.
func (c *Controller) ConversionPreflight(ctx echo.Context) error {
	c.applyConversionCORS(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) applyConversionCORS(ctx echo.Context) {
	origin := ctx.Request().Header.Get(echo.HeaderOrigin)
	if origin == "" {
		return
	}
	for _, allowed := range c.Settings.Tracking.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			h := ctx.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, allowed)
			h.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type")
			h.Set(echo.HeaderVary, echo.HeaderOrigin)
			return
		}
	}
}

// TrackConversion stores a conversion postback. Idempotent by event id:
// replays answer 200 with the original row and a deduped marker.
func (c *Controller) TrackConversion(ctx echo.Context) error {
	c.applyConversionCORS(ctx)

	if c.DS == nil {
		return c.HandleError(ctx, nil, "conversion storage not configured", http.StatusServiceUnavailable)
	}

	var payload conversionPayload
	if err := json.NewDecoder(ctx.Request().Body).Decode(&payload); err != nil {
		return c.HandleError(ctx, err, "invalid JSON body", http.StatusBadRequest)
	}
	payload.OfferID = strings.TrimSpace(payload.OfferID)
	if payload.OfferID == "" {
		return c.HandleError(ctx, nil, "offer_id is required", http.StatusBadRequest)
	}
	if !c.Content.Has(payload.OfferID) {
		return c.HandleError(ctx, nil, "unknown offer", http.StatusBadRequest)
	}

	ipHash, ipVersion := clientIPInfo(ctx)
	referer := optionalHeader(ctx, "Referer")
	userAgent := optionalHeader(ctx, "User-Agent")

	// Risk annotation. Only a high same-IP rate forces moderation; the weak
	// header signals just raise the score.
	var reasons []string
	score := 0
	needsReview := false
	if referer == nil {
		reasons = append(reasons, riskMissingReferer)
		score++
	}
	if userAgent == nil {
		reasons = append(reasons, riskMissingUA)
		score++
	}
	if ipHash != nil {
		count, err := c.DS.CountRecentConversions(*ipHash, conversionRateWindow)
		if err != nil {
			c.apiLogger.Warn("conversion rate check failed", "error", err)
		} else if count >= conversionRateLimit {
			reasons = append(reasons, riskIPRateHigh)
			score += 3
			needsReview = true
		}
	}

	status := datastore.StatusPending
	var comment *string
	if needsReview {
		status = datastore.StatusCheck
		msg := "同一IPからの短時間の重複コンバージョンのため要確認"
		comment = &msg
	}

	cv := &datastore.Conversion{
		OfferID:        payload.OfferID,
		Status:         status,
		RiskScore:      score,
		NeedsReview:    needsReview,
		ReviewComment:  comment,
		Reward:         payload.Reward,
		Payout:         payload.Payout,
		Amount:         payload.Amount,
		Commission:     payload.Commission,
		IPHash:         ipHash,
		IPVersion:      ipVersion,
		UserAgent:      userAgent,
		Referrer:       referer,
		AcceptLanguage: optionalHeader(ctx, "Accept-Language"),
		Origin:         optionalHeader(ctx, "Origin"),
		Country:        optionalHeader(ctx, "CF-IPCountry"),
	}
	if eventID := strings.TrimSpace(payload.EventID); eventID != "" {
		cv.EventID = &eventID
	}
	if sid := strings.TrimSpace(payload.StudentID); sid != "" {
		sum := sha256.Sum256([]byte(sid))
		h := hex.EncodeToString(sum[:])
		cv.StudentIDHash = &h
	}
	if pageURL := strings.TrimSpace(payload.PageURL); pageURL != "" {
		cv.PageURL = &pageURL
	}
	if payload.ClientTsMs != nil {
		ts := time.UnixMilli(*payload.ClientTsMs)
		if skew := time.Since(ts); skew < clientTsMaxSkew && skew > -clientTsMaxSkew {
			cv.ClientTsMs = payload.ClientTsMs
		}
	}
	if len(reasons) > 0 {
		raw, err := json.Marshal(reasons)
		if err == nil {
			s := string(raw)
			cv.RiskReasons = &s
		}
	}

	if err := c.DS.SaveConversion(cv); err != nil {
		return c.HandleError(ctx, err, "failed to store conversion", http.StatusInternalServerError)
	}

	// SaveConversion leaves the id at zero when the insert was swallowed by
	// the unique event id, meaning a replay.
	if cv.ID == 0 && cv.EventID != nil {
		original, err := c.DS.GetConversionByEventID(*cv.EventID)
		if err != nil || original == nil {
			return c.HandleError(ctx, err, "failed to resolve duplicate conversion", http.StatusInternalServerError)
		}
		if c.metrics != nil {
			c.metrics.ConversionDedup.Inc()
		}
		return ctx.JSON(http.StatusOK, map[string]any{
			"id":      original.ID,
			"status":  original.Status,
			"deduped": true,
		})
	}

	if c.metrics != nil {
		c.metrics.Conversions.WithLabelValues(status).Inc()
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"id":      cv.ID,
		"status":  cv.Status,
		"deduped": false,
	})
}
