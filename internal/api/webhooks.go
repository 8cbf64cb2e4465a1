package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/glats-richard/eigoonline/internal/merge"
)

// initWebhookRoutes registers the inbound campaign-approval webhook and the
// outbound webhook reachability probe.
func (c *Controller) initWebhookRoutes() {
	c.Group.POST("/webhook/approve-campaign", c.ApproveCampaign)
	c.Group.GET("/webhook/test", c.TestWebhook)
}

// webhookSecretOK checks the shared secret against the Authorization bearer
// token, the x-webhook-secret header and the key query parameter.
func (c *Controller) webhookSecretOK(ctx echo.Context) bool {
	secret := c.Settings.Webhook.Secret
	if secret == "" {
		return false
	}
	candidates := []string{
		strings.TrimPrefix(ctx.Request().Header.Get(echo.HeaderAuthorization), "Bearer "),
		ctx.Request().Header.Get("x-webhook-secret"),
		ctx.QueryParam("key"),
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) == 1 {
			return true
		}
	}
	return false
}

// approveCampaignRequest is the payload posted by the campaign approval
// automation.
type approveCampaignRequest struct {
	SchoolID        string   `json:"school_id"`
	CampaignText    string   `json:"campaign_text"`
	CampaignEndsAt  string   `json:"campaign_ends_at"`
	BenefitText     string   `json:"benefit_text"`
	CampaignBullets []string `json:"campaign_bullets"`
}

// ApproveCampaign applies approved campaign fields to the school's override.
// Existing override fields outside the campaign set are preserved.
func (c *Controller) ApproveCampaign(ctx echo.Context) error {
	if !c.webhookSecretOK(ctx) {
		return c.HandleError(ctx, nil, "unauthorized", http.StatusUnauthorized)
	}
	if c.DS == nil {
		return c.HandleError(ctx, nil, "database not configured", http.StatusServiceUnavailable)
	}

	var req approveCampaignRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	req.SchoolID = strings.TrimSpace(req.SchoolID)
	if !c.Content.Has(req.SchoolID) {
		return c.HandleError(ctx, nil, "unknown school id", http.StatusBadRequest)
	}

	// Start from the stored override so unrelated fields survive.
	var p merge.Patch
	if row, err := c.DS.GetOverride(req.SchoolID); err != nil {
		return c.HandleError(ctx, err, "failed to load override", http.StatusInternalServerError)
	} else if row != nil {
		if decoded, err := merge.DecodePatch([]byte(row.Data)); err == nil {
			p = decoded
		}
	}

	if v := strings.TrimSpace(req.CampaignText); v != "" {
		p.CampaignText = merge.Set(v)
	} else {
		p.CampaignText = merge.Null[string]()
	}
	if v := strings.TrimSpace(req.CampaignEndsAt); v != "" {
		p.CampaignEndsAt = merge.Set(v)
	} else {
		p.CampaignEndsAt = merge.Null[string]()
	}
	if v := strings.TrimSpace(req.BenefitText); v != "" {
		p.BenefitText = merge.Set(v)
	} else {
		p.BenefitText = merge.Null[string]()
	}
	p.CampaignBullets = merge.List(req.CampaignBullets...)

	if err := c.storePatch(req.SchoolID, &p); err != nil {
		return c.HandleError(ctx, err, "failed to store override", http.StatusInternalServerError)
	}
	c.countOverrideWrite("campaign")

	return ctx.JSON(http.StatusOK, map[string]any{
		"schoolId": req.SchoolID,
		"applied":  true,
	})
}

// TestWebhook probes the outbound review webhook endpoint.
func (c *Controller) TestWebhook(ctx echo.Context) error {
	if key := c.Settings.Webhook.TestKey; key != "" {
		if subtle.ConstantTimeCompare([]byte(ctx.QueryParam("key")), []byte(key)) != 1 {
			return c.HandleError(ctx, nil, "unauthorized", http.StatusUnauthorized)
		}
	}
	if !c.Notifier.Enabled() {
		return c.HandleError(ctx, nil, "webhook endpoint not configured", http.StatusServiceUnavailable)
	}

	status, err := c.Notifier.Ping(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "webhook unreachable", http.StatusBadGateway)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"reachable": true,
		"status":    status,
	})
}
