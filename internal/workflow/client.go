package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultTimeout = 5 * time.Minute

// APIError is a non-2xx reply. Message is the server's "error" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// UserMessage picks the text shown for a failed call: the server's error when
// it sent one, otherwise the generic retry hint.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgGenericFailure
}

// Download is a file returned by a pipeline endpoint.
type Download struct {
	FileName    string
	ContentType string
	Body        []byte
}

// CouponResult is the reply of /validate-coupon.
type CouponResult struct {
	Valid   bool
	Message string
}

// CheckoutRequest is the body of /create-checkout-session.
type CheckoutRequest struct {
	ServiceOption string         `json:"serviceOption"`
	CustomerEmail string         `json:"customerEmail"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Embedded      bool           `json:"embedded"`
}

// CheckoutSession is the reply of /create-checkout-session.
type CheckoutSession struct {
	SessionID      string `json:"sessionId"`
	URL            string `json:"url"`
	ClientSecret   string `json:"clientSecret"`
	PaymentMode    string `json:"paymentMode"`
	PublishableKey string `json:"publishableKey"`
}

// Verification is the reply of /verify-session.
type Verification struct {
	Paid        bool              `json:"paid"`
	SessionID   string            `json:"sessionId"`
	PaymentMode string            `json:"paymentMode"`
	Metadata    map[string]string `json:"metadata"`
}

// APIClient calls the CV service over HTTP.
type APIClient struct {
	http *resty.Client
}

// NewAPIClient builds a client for baseURL, e.g. http://localhost:5001.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)
	return &APIClient{http: c}
}

// Endpoint returns the pipeline path for a service option.
func Endpoint(option string) (string, bool) {
	switch option {
	case OptionAnalysis:
		return "/api/analyze-only", true
	case OptionImproved:
		return "/api/improve-only", true
	case OptionComplete:
		return "/api/analyze-cv", true
	default:
		return "", false
	}
}

// Process uploads the CV to one pipeline endpoint and returns the file.
func (c *APIClient) Process(ctx context.Context, path string, f File, role, jobDescription string) (Download, error) {
	req := c.http.R().
		SetContext(ctx).
		SetMultipartField("cv", f.Name, f.ContentType, bytes.NewReader(f.Data)).
		SetMultipartFormData(map[string]string{"role": role})
	if strings.TrimSpace(jobDescription) != "" {
		req.SetMultipartFormData(map[string]string{"jobDescription": jobDescription})
	}

	resp, err := req.Post(path)
	if err != nil {
		return Download{}, fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.IsError() {
		return Download{}, apiError(resp)
	}
	return Download{
		FileName:    attachmentName(resp.Header().Get("Content-Disposition")),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

// ValidateCoupon checks a coupon code. An invalid code is a result, not an error.
func (c *APIClient) ValidateCoupon(ctx context.Context, code string) (CouponResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"couponCode": strings.TrimSpace(code)}).
		Post("/api/validate-coupon")
	if err != nil {
		return CouponResult{}, fmt.Errorf("POST /api/validate-coupon: %w", err)
	}
	body := resp.Body()
	if resp.StatusCode() >= 500 || !gjson.GetBytes(body, "valid").Exists() {
		return CouponResult{}, apiError(resp)
	}
	if gjson.GetBytes(body, "valid").Bool() {
		return CouponResult{Valid: true, Message: gjson.GetBytes(body, "message").String()}, nil
	}
	return CouponResult{Valid: false, Message: gjson.GetBytes(body, "error").String()}, nil
}

// CreateCheckoutSession opens a payment session.
func (c *APIClient) CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (CheckoutSession, error) {
	var out CheckoutSession
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(&out).
		Post("/api/create-checkout-session")
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("POST /api/create-checkout-session: %w", err)
	}
	if resp.IsError() {
		return CheckoutSession{}, apiError(resp)
	}
	return out, nil
}

// VerifySession asks whether a checkout session was paid.
func (c *APIClient) VerifySession(ctx context.Context, sessionID string) (Verification, error) {
	var out Verification
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"sessionId": sessionID}).
		SetResult(&out).
		Post("/api/verify-session")
	if err != nil {
		return Verification{}, fmt.Errorf("POST /api/verify-session: %w", err)
	}
	if resp.IsError() {
		return Verification{}, apiError(resp)
	}
	return out, nil
}

// TrackEvent posts one funnel event.
func (c *APIClient) TrackEvent(ctx context.Context, event map[string]any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(event).
		Post("/api/analytics")
	if err != nil {
		return fmt.Errorf("POST /api/analytics: %w", err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// Health returns the server status string.
func (c *APIClient) Health(ctx context.Context) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return "", fmt.Errorf("GET /api/health: %w", err)
	}
	if resp.IsError() {
		return "", apiError(resp)
	}
	return gjson.GetBytes(resp.Body(), "status").String(), nil
}

func apiError(resp *resty.Response) error {
	msg := ""
	if body := resp.Body(); gjson.ValidBytes(body) {
		msg = gjson.GetBytes(body, "error").String()
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}

func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
