package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/glats-richard/eigoonline/internal/merge"
	"github.com/glats-richard/eigoonline/internal/schoolcsv"
)

// initTrackerRoutes registers the admin endpoints behind the tracker UI:
// moderation status updates and the override CRUD with CSV import/export.
func (c *Controller) initTrackerRoutes() {
	tracker := c.Group.Group("/tracker")

	tracker.POST("/reviews/status", c.UpdateReviewStatus)
	tracker.POST("/conversions/status", c.UpdateConversionStatus)

	tracker.GET("/overrides", c.ListOverrides)
	tracker.POST("/overrides", c.UpsertOverride)
	tracker.DELETE("/overrides/:id", c.DeleteOverride)
	tracker.GET("/overrides/export", c.ExportOverrides)
	tracker.POST("/overrides/import", c.ImportOverrides)
}

const trackerDefaultReturn = "/tracker"

var reviewStatuses = map[string]bool{
	"pending":  true,
	"approved": true,
	"rejected": true,
}

var conversionStatuses = map[string]bool{
	"pending":  true,
	"check":    true,
	"approved": true,
	"rejected": true,
}

// UpdateReviewStatus moves one review through moderation and redirects back
// to the tracker UI.
func (c *Controller) UpdateReviewStatus(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "database not configured", http.StatusServiceUnavailable)
	}

	id, err := strconv.ParseUint(strings.TrimSpace(ctx.FormValue("id")), 10, 32)
	if err != nil {
		return c.HandleError(ctx, err, "invalid review id", http.StatusBadRequest)
	}
	status := strings.TrimSpace(ctx.FormValue("status"))
	if !reviewStatuses[status] {
		return c.HandleError(ctx, nil, "invalid review status", http.StatusBadRequest)
	}
	var comment *string
	if v := strings.TrimSpace(ctx.FormValue("review_comment")); v != "" {
		comment = &v
	}

	if err := c.DS.UpdateReviewStatus(uint(id), status, comment); err != nil {
		return c.HandleError(ctx, err, "failed to update review", http.StatusInternalServerError)
	}
	return ctx.Redirect(http.StatusSeeOther, safeReturnTo(ctx.FormValue("returnTo"), trackerDefaultReturn))
}

// UpdateConversionStatus moves one conversion through moderation.
func (c *Controller) UpdateConversionStatus(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "database not configured", http.StatusServiceUnavailable)
	}

	id, err := strconv.ParseUint(strings.TrimSpace(ctx.FormValue("id")), 10, 32)
	if err != nil {
		return c.HandleError(ctx, err, "invalid conversion id", http.StatusBadRequest)
	}
	status := strings.TrimSpace(ctx.FormValue("status"))
	if !conversionStatuses[status] {
		return c.HandleError(ctx, nil, "invalid conversion status", http.StatusBadRequest)
	}

	if err := c.DS.UpdateConversionStatus(uint(id), status); err != nil {
		return c.HandleError(ctx, err, "failed to update conversion", http.StatusInternalServerError)
	}
	return ctx.Redirect(http.StatusSeeOther, safeReturnTo(ctx.FormValue("returnTo"), trackerDefaultReturn))
}

// overrideRow is the admin-facing view of one stored override.
type overrideRow struct {
	SchoolID  string `json:"schoolId"`
	Data      any    `json:"data"`
	UpdatedAt string `json:"updatedAt"`
}

// ListOverrides returns every stored override patch.
func (c *Controller) ListOverrides(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "database not configured", http.StatusServiceUnavailable)
	}
	rows, err := c.DS.ListOverrides()
	if err != nil {
		return c.HandleError(ctx, err, "failed to list overrides", http.StatusInternalServerError)
	}

	out := make([]overrideRow, 0, len(rows))
	for i := range rows {
		var data any
		if p, err := merge.DecodePatch([]byte(rows[i].Data)); err == nil {
			data = p
		} else {
			data = rows[i].Data
		}
		out = append(out, overrideRow{
			SchoolID:  rows[i].SchoolID,
			Data:      data,
			UpdatedAt: rows[i].UpdatedAt.Format(time.RFC3339),
		})
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"overrides": out,
		"count":     len(out),
	})
}

// upsertOverrideRequest carries one override write.
type upsertOverrideRequest struct {
	SchoolID string      `json:"schoolId"`
	Patch    merge.Patch `json:"patch"`
}

// UpsertOverride validates and stores an override patch for one school.
// Decoding through the typed patch strips any protected or unknown key
// before the document reaches the database.
func (c *Controller) UpsertOverride(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "database not configured", http.StatusServiceUnavailable)
	}

	var req upsertOverrideRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	req.SchoolID = strings.TrimSpace(req.SchoolID)
	if !c.Content.Has(req.SchoolID) {
		return c.HandleError(ctx, nil, "unknown school id", http.StatusBadRequest)
	}

	if err := c.storePatch(req.SchoolID, &req.Patch); err != nil {
		return c.HandleError(ctx, err, "failed to store override", http.StatusInternalServerError)
	}
	c.countOverrideWrite("upsert")
	return ctx.JSON(http.StatusOK, map[string]any{"schoolId": req.SchoolID, "stored": true})
}

// DeleteOverride removes the override for one school, restoring the static
// record.
func (c *Controller) DeleteOverride(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "database not configured", http.StatusServiceUnavailable)
	}
	id := ctx.Param("id")
	if err := c.DS.DeleteOverride(id); err != nil {
		return c.HandleError(ctx, err, "failed to delete override", http.StatusInternalServerError)
	}
	c.countOverrideWrite("delete")
	c.invalidateMergedCache()
	return ctx.NoContent(http.StatusNoContent)
}

// ExportOverrides streams the merged school set as the editing spreadsheet
// CSV.
func (c *Controller) ExportOverrides(ctx echo.Context) error {
	data, err := schoolcsv.Export(c.Merger.MergedAll())
	if err != nil {
		return c.HandleError(ctx, err, "failed to build CSV", http.StatusInternalServerError)
	}
	filename := fmt.Sprintf("schools-%s.csv", time.Now().Format("20060102-150405"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

// importError reports one rejected spreadsheet row.
type importError struct {
	SchoolID string `json:"schoolId"`
	Message  string `json:"message"`
}

// ImportOverrides ingests an edited spreadsheet. Unknown school ids are
// reported per row; the remaining rows still import.
func (c *Controller) ImportOverrides(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "database not configured", http.StatusServiceUnavailable)
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, err, "missing file upload", http.StatusBadRequest)
	}
	f, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, err, "failed to read upload", http.StatusBadRequest)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.HandleError(ctx, err, "failed to read upload", http.StatusBadRequest)
	}

	rows, err := schoolcsv.Parse(data)
	if err != nil {
		return c.HandleError(ctx, err, "failed to parse CSV", http.StatusBadRequest)
	}

	imported := 0
	var errs []importError
	for i := range rows {
		row := &rows[i]
		if !c.Content.Has(row.ID) {
			errs = append(errs, importError{SchoolID: row.ID, Message: "unknown school id"})
			continue
		}
		if err := c.storePatch(row.ID, &row.Patch); err != nil {
			errs = append(errs, importError{SchoolID: row.ID, Message: err.Error()})
			continue
		}
		imported++
	}
	c.countOverrideWrite("import")

	return ctx.JSON(http.StatusOK, map[string]any{
		"imported": imported,
		"errors":   errs,
	})
}

// storePatch canonicalizes and upserts one patch, then drops the merged
// cache.
func (c *Controller) storePatch(schoolID string, p *merge.Patch) error {
	raw, err := merge.EncodePatch(p)
	if err != nil {
		return fmt.Errorf("encoding patch: %w", err)
	}
	if err := c.DS.UpsertOverride(schoolID, raw); err != nil {
		return err
	}
	c.invalidateMergedCache()
	return nil
}

func (c *Controller) countOverrideWrite(op string) {
	if c.metrics != nil {
		c.metrics.OverrideWrites.WithLabelValues(op).Inc()
	}
}
