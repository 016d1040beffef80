package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"

	"smartcv-backend/internal/ledger"
	"smartcv-backend/internal/shared/metrics"
	"smartcv-backend/internal/shared/server/respond"
	"smartcv-backend/internal/shared/telemetry"
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeGateway    = "PAYMENT_GATEWAY_ERROR"
	ErrorCodeWebhook    = "WEBHOOK_SIGNATURE_INVALID"
	ErrorCodeUnpaid     = "PAYMENT_NOT_COMPLETED"

	// stripe caps webhook payloads well below this.
	maxWebhookBytes = 1 << 16
)

// Gateway is implemented by Service.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	VerifyWebhook(payload []byte, header string) (Event, error)
	IsTestMode() bool
	Mode() string
	PublishableKey() string
}

// Handler serves checkout, verification and webhook routes.
type Handler struct {
	Svc         Gateway
	Ledger      ledger.Repo
	FrontendURL string
}

// NewHandler constructs a Handler. A nil ledger discards events.
func NewHandler(svc Gateway, repo ledger.Repo, frontendURL string) *Handler {
	if repo == nil {
		repo = ledger.NopRepo{}
	}
	return &Handler{Svc: svc, Ledger: repo, FrontendURL: strings.TrimRight(frontendURL, "/")}
}

// RegisterRoutes attaches the payment routes.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/create-checkout-session", h.CreateCheckoutSession)
	rg.POST("/verify-session", h.VerifySession)
	rg.POST("/webhook", h.Webhook)
}

type checkoutRequest struct {
	ServiceOption string         `json:"serviceOption"`
	CustomerEmail string         `json:"customerEmail"`
	Metadata      map[string]any `json:"metadata"`
	Embedded      *bool          `json:"embedded"`
}

// CreateCheckoutSession handles POST /create-checkout-session.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body checkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Invalid request body")
		return
	}
	body.ServiceOption = strings.TrimSpace(body.ServiceOption)
	body.CustomerEmail = strings.TrimSpace(body.CustomerEmail)

	switch {
	case body.ServiceOption == "":
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Service option is required")
		return
	case body.CustomerEmail == "":
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Customer email is required")
		return
	}

	embedded := true
	if body.Embedded != nil {
		embedded = *body.Embedded
	}
	successURL := h.FrontendURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}"

	session, err := h.Svc.CreateSession(c.Request.Context(), SessionRequest{
		ServiceOption: body.ServiceOption,
		CustomerEmail: body.CustomerEmail,
		SuccessURL:    successURL,
		CancelURL:     h.FrontendURL + "/payment-cancel",
		ReturnURL:     successURL,
		Embedded:      embedded,
		Metadata:      stringMetadata(body.Metadata),
	})
	if err != nil {
		if errors.Is(err, ErrInvalidServiceOption) {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Invalid service option")
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeGateway,
			fmt.Sprintf("Failed to create checkout session: %v", err))
		return
	}

	respond.OK(c, gin.H{
		"sessionId":      session.ID,
		"url":            session.URL,
		"clientSecret":   session.ClientSecret,
		"paymentMode":    h.Svc.Mode(),
		"publishableKey": h.Svc.PublishableKey(),
	})
}

type verifyRequest struct {
	SessionID string `json:"sessionId"`
}

// VerifySession handles POST /verify-session. Test mode never blocks on payment status.
func (h *Handler) VerifySession(c *gin.Context) {
	var body verifyRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Invalid request body")
		return
	}
	id := strings.TrimSpace(body.SessionID)
	if id == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Session ID is required")
		return
	}

	session, err := h.Svc.GetSession(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeGateway,
			fmt.Sprintf("Failed to verify session: %v", err))
		return
	}

	testMode := h.Svc.IsTestMode()
	if !testMode && !session.Paid() {
		respond.ErrorWith(c, http.StatusBadRequest, ErrorCodeUnpaid, "Payment not completed", gin.H{"paid": false})
		return
	}

	metadata := session.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	respond.OK(c, gin.H{
		"paid":        testMode || session.Paid(),
		"sessionId":   session.ID,
		"paymentMode": h.Svc.Mode(),
		"metadata":    metadata,
	})
}

// Webhook handles POST /webhook. The body must be read raw for signature checks.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeWebhook, fmt.Sprintf("Webhook Error: %v", err))
		return
	}

	event, err := h.Svc.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeWebhook, fmt.Sprintf("Webhook Error: %v", err))
		return
	}

	h.dispatch(c.Request.Context(), event)
	respond.OK(c, gin.H{"received": true})
}

func (h *Handler) dispatch(ctx context.Context, event Event) {
	fields := map[string]any{"event_id": event.ID, "event_type": event.Type, "object_id": event.ObjectID}

	switch stripe.EventType(event.Type) {
	case stripe.EventTypeCheckoutSessionCompleted:
		fields["payment_status"] = event.Object["payment_status"]
		if md, ok := event.Object["metadata"].(map[string]any); ok {
			fields["service_option"] = md["serviceOption"]
			fields["payment_mode"] = md["paymentMode"]
		}
		telemetry.Info("webhook.checkout_completed", fields)
	case stripe.EventTypePaymentIntentSucceeded:
		telemetry.Info("webhook.payment_succeeded", fields)
	case stripe.EventTypePaymentIntentPaymentFailed:
		telemetry.Warn("webhook.payment_failed", fields)
	default:
		telemetry.Info("webhook.unhandled", fields)
		return
	}

	metrics.IncWebhookEvent(event.Type)
	row := ledger.NewEvent(ledger.KindWebhook, event.Type, event.ID, map[string]any{
		"object_id": event.ObjectID,
		"object":    event.Object,
	})
	if err := h.Ledger.Record(ctx, row); err != nil {
		telemetry.Error("ledger.record_failed", map[string]any{"event_id": event.ID, "error": err})
	}
}

func stringMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
