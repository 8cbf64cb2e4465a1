package api

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/glats-richard/eigoonline/internal/datastore"
	"github.com/glats-richard/eigoonline/internal/webhook"
)

const (
	reviewBodyMinLen = 10
	reviewBodyMaxLen = 2000

	reviewRateWindow = time.Hour
	reviewRateLimit  = 3
)

// initReviewRoutes registers the public review submission endpoint.
func (c *Controller) initReviewRoutes() {
	c.Group.POST("/reviews", c.SubmitReview)
}

// reviewSubmission binds both JSON and HTML form posts.
type reviewSubmission struct {
	SchoolID          string   `json:"schoolId" form:"schoolId"`
	Rating            float64  `json:"rating" form:"rating"`
	TeacherQuality    float64  `json:"teacherQuality" form:"teacherQuality"`
	MaterialQuality   float64  `json:"materialQuality" form:"materialQuality"`
	ConnectionQuality float64  `json:"connectionQuality" form:"connectionQuality"`
	PriceRating       *float64 `json:"priceRating" form:"priceRating"`
	Satisfaction      *float64 `json:"satisfactionRating" form:"satisfactionRating"`
	Body              string   `json:"body" form:"body"`
	Age               string   `json:"age" form:"age"`
	ReturnTo          string   `json:"returnTo" form:"returnTo"`
}

// validRating reports whether v lies on the 1-5 scale in half-point steps.
func validRating(v float64) bool {
	if v < 1 || v > 5 {
		return false
	}
	scaled := v * 2
	return scaled == float64(int(scaled))
}

// SubmitReview stores a new pending review and kicks off the moderation
// webhook. Form posts answer with a redirect, JSON posts with a JSON body.
func (c *Controller) SubmitReview(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "review storage not configured", http.StatusServiceUnavailable)
	}

	var sub reviewSubmission
	if err := ctx.Bind(&sub); err != nil {
		c.countRejected("malformed")
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	sub.SchoolID = strings.TrimSpace(sub.SchoolID)
	sub.Body = strings.TrimSpace(sub.Body)

	if !c.Content.Has(sub.SchoolID) {
		c.countRejected("unknown_school")
		return c.HandleError(ctx, nil, "unknown school id", http.StatusBadRequest)
	}
	for _, v := range []float64{sub.Rating, sub.TeacherQuality, sub.MaterialQuality, sub.ConnectionQuality} {
		if !validRating(v) {
			c.countRejected("invalid_rating")
			return c.HandleError(ctx, nil, "ratings must be between 1 and 5 in half-point steps", http.StatusBadRequest)
		}
	}
	for _, v := range []*float64{sub.PriceRating, sub.Satisfaction} {
		if v != nil && !validRating(*v) {
			c.countRejected("invalid_rating")
			return c.HandleError(ctx, nil, "ratings must be between 1 and 5 in half-point steps", http.StatusBadRequest)
		}
	}
	if n := utf8.RuneCountInString(sub.Body); n < reviewBodyMinLen || n > reviewBodyMaxLen {
		c.countRejected("body_length")
		return c.HandleError(ctx, nil, "review body must be 10 to 2000 characters", http.StatusBadRequest)
	}

	ipHash, ipVersion := clientIPInfo(ctx)

	// Best-effort rate limit: a failing count query must not block
	// submissions.
	if ipHash != nil {
		count, err := c.DS.CountRecentReviews(*ipHash, reviewRateWindow)
		switch {
		case err != nil:
			c.apiLogger.Warn("review rate check failed", "error", err)
		case count >= reviewRateLimit:
			c.countRejected("rate_limited")
			return c.HandleError(ctx, nil, "too many reviews from this address, try again later", http.StatusTooManyRequests)
		}
	}

	r := &datastore.Review{
		SchoolID:           sub.SchoolID,
		Status:             datastore.StatusPending,
		OverallRating:      sub.Rating,
		TeacherQuality:     sub.TeacherQuality,
		MaterialQuality:    sub.MaterialQuality,
		ConnectionQuality:  sub.ConnectionQuality,
		PriceRating:        sub.PriceRating,
		SatisfactionRating: sub.Satisfaction,
		Body:               sub.Body,
		IPHash:             ipHash,
		IPVersion:          ipVersion,
		UserAgent:          optionalHeader(ctx, "User-Agent"),
		Referrer:           optionalHeader(ctx, "Referer"),
	}
	if age := strings.TrimSpace(sub.Age); age != "" {
		r.Age = &age
	}

	if err := c.DS.SaveReview(r); err != nil {
		return c.HandleError(ctx, err, "failed to store review", http.StatusInternalServerError)
	}

	if c.metrics != nil {
		c.metrics.ReviewsSubmitted.WithLabelValues(sub.SchoolID).Inc()
	}
	c.Notifier.NotifyReview(webhook.ReviewEvent{
		SchoolID:    sub.SchoolID,
		Body:        sub.Body,
		SubmittedAt: time.Now(),
	})

	if isJSONRequest(ctx) {
		return ctx.JSON(http.StatusCreated, map[string]any{
			"id":     r.ID,
			"status": r.Status,
		})
	}
	target := safeReturnTo(sub.ReturnTo, "/schools/"+sub.SchoolID)
	return ctx.Redirect(http.StatusSeeOther, target)
}

func (c *Controller) countRejected(reason string) {
	if c.metrics != nil {
		c.metrics.ReviewsRejected.WithLabelValues(reason).Inc()
	}
}

func isJSONRequest(ctx echo.Context) bool {
	return strings.Contains(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func optionalHeader(ctx echo.Context, name string) *string {
	v := ctx.Request().Header.Get(name)
	if v == "" {
		return nil
	}
	return &v
}
