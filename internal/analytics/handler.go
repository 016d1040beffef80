package analytics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartcv-backend/internal/ledger"
	"smartcv-backend/internal/shared/metrics"
	"smartcv-backend/internal/shared/server/respond"
	"smartcv-backend/internal/shared/telemetry"
	"smartcv-backend/internal/shared/util"
)

const ErrorCodeValidation = "VALIDATION_ERROR"

// Handler accepts funnel events from the client and logs them.
type Handler struct {
	Ledger ledger.Repo
	Now    func() time.Time
}

// NewHandler constructs a Handler. A nil ledger discards events.
func NewHandler(repo ledger.Repo) *Handler {
	if repo == nil {
		repo = ledger.NopRepo{}
	}
	return &Handler{Ledger: repo, Now: time.Now}
}

// RegisterRoutes attaches POST /analytics.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/analytics", h.Track)
}

// Track logs a funnel_event line carrying every field the client sent.
func (h *Handler) Track(c *gin.Context) {
	event := map[string]any{}
	if err := c.ShouldBindJSON(&event); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Invalid analytics payload")
		return
	}

	fields := Fields(event, h.Now())
	telemetry.Info("funnel_event", fields)

	name, _ := event["event"].(string)
	metrics.IncFunnelEvent(name)
	h.record(c.Request.Context(), name, fields)

	respond.OK(c, gin.H{"success": true})
}

// Fields flattens a client event into the log shape. Client fields win
// over the derived ones, except type. A customer email is replaced by its hash.
func Fields(event map[string]any, now time.Time) map[string]any {
	fields := map[string]any{
		"timestamp":   now.UTC().Format(time.RFC3339Nano),
		"event":       event["event"],
		"funnel_step": event["funnel_step"],
		"step":        event["step"],
		"session_id":  event["sessionId"],
	}
	for k, v := range event {
		fields[k] = v
	}
	if email, ok := fields["customerEmail"].(string); ok {
		delete(fields, "customerEmail")
		if email != "" {
			fields["customer_email_hash"] = util.HashKey(email)
		}
	}
	fields["type"] = "funnel_event"
	return fields
}

func (h *Handler) record(ctx context.Context, name string, fields map[string]any) {
	ref, _ := fields["session_id"].(string)
	if err := h.Ledger.Record(ctx, ledger.NewEvent(ledger.KindFunnel, name, ref, fields)); err != nil {
		telemetry.Warn("ledger.record_failed", map[string]any{"event": name, "error": err})
	}
}
