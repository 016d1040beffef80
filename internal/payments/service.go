package payments

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"smartcv-backend/internal/shared/config"
	"smartcv-backend/internal/shared/metrics"
	"smartcv-backend/internal/shared/telemetry"
	"smartcv-backend/internal/shared/util"
)

var ErrInvalidServiceOption = errors.New("invalid service option")

const (
	OptionAnalysis = "analysis"
	OptionImproved = "improved"
	OptionComplete = "complete"

	ModeTest = "test"
	ModeLive = "live"
)

// Product describes one purchasable service option.
type Product struct {
	Name        string
	Description string
	Price       float64
}

// Cents converts the USD price to the smallest currency unit.
func (p Product) Cents() int64 {
	return int64(math.Round(p.Price * 100))
}

// Catalog builds the price table, taking prices from configuration.
func Catalog(prices config.Prices) map[string]Product {
	return map[string]Product{
		OptionAnalysis: {
			Name:        "CV Analysis Report",
			Description: "Detailed CV analysis report with match score and recommendations",
			Price:       prices.AnalysisOnly,
		},
		OptionImproved: {
			Name:        "Improved CV Templates",
			Description: "2 professionally improved CV templates ready to send",
			Price:       prices.ImprovedOnly,
		},
		OptionComplete: {
			Name:        "Complete CV Package",
			Description: "Full analysis report + 2 improved CV templates",
			Price:       prices.CompletePackage,
		},
	}
}

// SessionRequest is the input for CreateSession.
type SessionRequest struct {
	ServiceOption string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	ReturnURL     string
	Embedded      bool
	Metadata      map[string]string
}

// Session is the subset of a checkout session the handlers expose.
type Session struct {
	ID            string
	URL           string
	ClientSecret  string
	PaymentStatus string
	Metadata      map[string]string
}

// Paid reports whether the gateway marked the session as paid.
func (s Session) Paid() bool {
	return s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// Event is a verified webhook event.
type Event struct {
	ID       string
	Type     string
	ObjectID string
	Object   map[string]any
}

// sessionAPI is the slice of the stripe checkout client used here.
type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Options configures a Service.
type Options struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
	Mode           string
	Prices         config.Prices
}

// Service talks to the payment gateway.
type Service struct {
	sessions       sessionAPI
	catalog        map[string]Product
	mode           string
	publishableKey string
	webhookSecret  string
}

// NewService builds a Service backed by the stripe API client.
func NewService(opts Options) *Service {
	sc := &client.API{}
	sc.Init(opts.SecretKey, nil)
	return newService(sc.CheckoutSessions, opts)
}

func newService(api sessionAPI, opts Options) *Service {
	mode := opts.Mode
	if mode != ModeLive {
		mode = ModeTest
	}
	return &Service{
		sessions:       api,
		catalog:        Catalog(opts.Prices),
		mode:           mode,
		publishableKey: opts.PublishableKey,
		webhookSecret:  opts.WebhookSecret,
	}
}

// IsTestMode reports whether payments run against the test gateway.
func (s *Service) IsTestMode() bool { return s.mode == ModeTest }

// Mode returns "test" or "live".
func (s *Service) Mode() string { return s.mode }

// PublishableKey returns the client-side gateway key.
func (s *Service) PublishableKey() string { return s.publishableKey }

// Product looks up a service option.
func (s *Service) Product(option string) (Product, bool) {
	p, ok := s.catalog[option]
	return p, ok
}

// CreateSession opens a checkout session for one service option.
func (s *Service) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	product, ok := s.Product(req.ServiceOption)
	if !ok {
		return Session{}, fmt.Errorf("%w: %q", ErrInvalidServiceOption, req.ServiceOption)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyUSD)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(product.Name),
					Description: stripe.String(product.Description),
				},
				UnitAmount: stripe.Int64(product.Cents()),
			},
			Quantity: stripe.Int64(1),
		}},
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	// server values are set last so callers cannot override them
	params.AddMetadata("serviceOption", req.ServiceOption)
	params.AddMetadata("paymentMode", s.mode)

	if req.Embedded {
		params.UIMode = stripe.String(string(stripe.CheckoutSessionUIModeEmbedded))
		params.ReturnURL = stripe.String(req.ReturnURL)
	} else {
		params.SuccessURL = stripe.String(req.SuccessURL)
		params.CancelURL = stripe.String(req.CancelURL)
	}

	if s.IsTestMode() {
		params.PaymentMethodOptions = &stripe.CheckoutSessionPaymentMethodOptionsParams{
			Card: &stripe.CheckoutSessionPaymentMethodOptionsCardParams{
				RequestThreeDSecure: stripe.String(string(stripe.CheckoutSessionPaymentMethodOptionsCardRequestThreeDSecureAutomatic)),
			},
		}
	}

	cs, err := s.sessions.New(params)
	if err != nil {
		return Session{}, err
	}
	metrics.IncCheckoutSession(req.ServiceOption)
	telemetry.Info("payments.session_created", map[string]any{
		"session_id":     cs.ID,
		"service_option": req.ServiceOption,
		"amount_cents":   product.Cents(),
		"payment_mode":   s.mode,
		"embedded":       req.Embedded,
		"email_hash":     util.HashKey(req.CustomerEmail),
	})
	return toSession(cs), nil
}

// GetSession fetches a checkout session by id.
func (s *Service) GetSession(ctx context.Context, id string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := s.sessions.Get(id, params)
	if err != nil {
		return Session{}, err
	}
	return toSession(cs), nil
}

// VerifyWebhook checks the signature header and decodes the event.
func (s *Service) VerifyWebhook(payload []byte, header string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, header, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("Webhook signature verification failed: %w", err)
	}
	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil {
		out.Object = ev.Data.Object
		if id, ok := ev.Data.Object["id"].(string); ok {
			out.ObjectID = id
		}
	}
	return out, nil
}

func toSession(cs *stripe.CheckoutSession) Session {
	if cs == nil {
		return Session{}
	}
	return Session{
		ID:            cs.ID,
		URL:           cs.URL,
		ClientSecret:  cs.ClientSecret,
		PaymentStatus: string(cs.PaymentStatus),
		Metadata:      cs.Metadata,
	}
}
