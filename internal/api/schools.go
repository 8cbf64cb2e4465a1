package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/glats-richard/eigoonline/internal/content"
	"github.com/glats-richard/eigoonline/internal/datastore"
	"github.com/glats-richard/eigoonline/internal/review"
)

// initSchoolRoutes registers the public read endpoints serving merged school
// records.
func (c *Controller) initSchoolRoutes() {
	c.Group.GET("/schools", c.ListSchools)
	c.Group.GET("/schools/:id", c.GetSchool)
	c.Group.GET("/schools/:id/reviews", c.GetSchoolReviews)
}

// schoolResponse wraps a merged record with its id, which the record itself
// keeps out of its JSON form.
type schoolResponse struct {
	ID string `json:"id"`
	*content.SchoolRecord
}

// ListSchools returns every merged school record. The merged set is cached
// briefly; override mutations flush the cache.
func (c *Controller) ListSchools(ctx echo.Context) error {
	if cached, found := c.mergedCache.Get(mergedListCacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	records := c.Merger.MergedAll()
	out := make([]schoolResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, schoolResponse{ID: rec.ID, SchoolRecord: rec})
	}
	response := map[string]any{
		"schools": out,
		"count":   len(out),
	}
	c.mergedCache.Set(mergedListCacheKey, response, cache.DefaultExpiration)
	return ctx.JSON(http.StatusOK, response)
}

// GetSchool returns one merged school record.
func (c *Controller) GetSchool(ctx echo.Context) error {
	id := ctx.Param("id")
	rec, ok := c.Merger.MergedRecord(id)
	if !ok {
		return c.HandleError(ctx, nil, "school not found", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, schoolResponse{ID: rec.ID, SchoolRecord: rec})
}

// publicReview is the review shape exposed to the site: no moderation or
// anti-abuse metadata.
type publicReview struct {
	ID                 uint     `json:"id"`
	Rating             float64  `json:"rating"`
	TeacherQuality     float64  `json:"teacherQuality"`
	MaterialQuality    float64  `json:"materialQuality"`
	ConnectionQuality  float64  `json:"connectionQuality"`
	PriceRating        *float64 `json:"priceRating,omitempty"`
	SatisfactionRating *float64 `json:"satisfactionRating,omitempty"`
	Body               string   `json:"body"`
	Age                *string  `json:"age,omitempty"`
	CreatedAt          string   `json:"createdAt"`
}

// GetSchoolReviews returns the approved reviews for a school together with
// their aggregate statistics.
func (c *Controller) GetSchoolReviews(ctx echo.Context) error {
	id := ctx.Param("id")
	if !c.Content.Has(id) {
		return c.HandleError(ctx, nil, "school not found", http.StatusNotFound)
	}
	if c.DS == nil {
		return ctx.JSON(http.StatusOK, map[string]any{
			"schoolId":    id,
			"reviews":     []publicReview{},
			"simpleStats": review.Simple(nil),
			"stats":       review.DetailedStats(nil),
		})
	}

	rows, err := c.DS.ApprovedReviews(id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load reviews", http.StatusInternalServerError)
	}

	out := make([]publicReview, 0, len(rows))
	statRows := make([]review.Row, 0, len(rows))
	overallRatings := make([]float64, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		overallRatings = append(overallRatings, r.OverallRating)
		out = append(out, publicReview{
			ID:                 r.ID,
			Rating:             r.OverallRating,
			TeacherQuality:     r.TeacherQuality,
			MaterialQuality:    r.MaterialQuality,
			ConnectionQuality:  r.ConnectionQuality,
			PriceRating:        r.PriceRating,
			SatisfactionRating: r.SatisfactionRating,
			Body:               r.Body,
			Age:                r.Age,
			CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		})
		statRows = append(statRows, reviewStatRow(r))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"schoolId":    id,
		"reviews":     out,
		"simpleStats": review.Simple(overallRatings),
		"stats":       review.DetailedStats(statRows),
	})
}

func reviewStatRow(r *datastore.Review) review.Row {
	return review.Row{
		Overall:      &r.OverallRating,
		Teacher:      &r.TeacherQuality,
		Material:     &r.MaterialQuality,
		Connection:   &r.ConnectionQuality,
		Price:        r.PriceRating,
		Satisfaction: r.SatisfactionRating,
	}
}
