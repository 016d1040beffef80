package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"smartcv-backend/internal/shared/config"
)

type fakeSessions struct {
	created []*stripe.CheckoutSessionParams
	newErr  error
	get     *stripe.CheckoutSession
	getErr  error
	gotID   string
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.created = append(f.created, params)
	if f.newErr != nil {
		return nil, f.newErr
	}
	return &stripe.CheckoutSession{
		ID:           "cs_test_123",
		URL:          "https://checkout.stripe.com/c/pay/cs_test_123",
		ClientSecret: "cs_test_123_secret",
		Metadata:     params.Metadata,
	}, nil
}

func (f *fakeSessions) Get(id string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.gotID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.get, nil
}

var defaultPrices = config.Prices{AnalysisOnly: 3.90, ImprovedOnly: 6.90, CompletePackage: 9.90}

func newTestService(api sessionAPI, mode string) *Service {
	return newService(api, Options{
		PublishableKey: "pk_test_abc",
		WebhookSecret:  "whsec_test",
		Mode:           mode,
		Prices:         defaultPrices,
	})
}

func TestCatalogPricesAreDeterministic(t *testing.T) {
	catalog := Catalog(defaultPrices)

	assert.Equal(t, int64(390), catalog[OptionAnalysis].Cents())
	assert.Equal(t, int64(690), catalog[OptionImproved].Cents())
	assert.Equal(t, int64(990), catalog[OptionComplete].Cents())
	assert.Equal(t, "Complete CV Package", catalog[OptionComplete].Name)
	assert.Equal(t, "2 professionally improved CV templates ready to send", catalog[OptionImproved].Description)

	again := Catalog(defaultPrices)
	assert.Equal(t, catalog, again)
}

func TestCentsRoundsFloatPrices(t *testing.T) {
	assert.Equal(t, int64(1999), Product{Price: 19.99}.Cents())
	assert.Equal(t, int64(1), Product{Price: 0.005}.Cents())
}

func TestCreateSessionRejectsUnknownOptionBeforeGateway(t *testing.T) {
	api := &fakeSessions{}
	svc := newTestService(api, ModeTest)

	_, err := svc.CreateSession(context.Background(), SessionRequest{ServiceOption: "premium", CustomerEmail: "a@b.co"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidServiceOption))
	assert.Empty(t, api.created)
}

func TestProductLooksUpCatalog(t *testing.T) {
	svc := newTestService(&fakeSessions{}, ModeTest)

	p, ok := svc.Product(OptionImproved)
	require.True(t, ok)
	assert.Equal(t, int64(690), p.Cents())

	_, ok = svc.Product("premium")
	assert.False(t, ok)
}

func TestCreateSessionServerMetadataWins(t *testing.T) {
	api := &fakeSessions{}
	svc := newTestService(api, ModeLive)

	_, err := svc.CreateSession(context.Background(), SessionRequest{
		ServiceOption: OptionAnalysis,
		CustomerEmail: "jane@example.com",
		Metadata: map[string]string{
			"serviceOption": OptionComplete,
			"paymentMode":   "test",
			"role":          "SRE",
		},
	})
	require.NoError(t, err)

	md := api.created[0].Metadata
	assert.Equal(t, OptionAnalysis, md["serviceOption"])
	assert.Equal(t, "live", md["paymentMode"])
	assert.Equal(t, "SRE", md["role"])
}

func TestCreateSessionEmbeddedTestMode(t *testing.T) {
	api := &fakeSessions{}
	svc := newTestService(api, ModeTest)

	session, err := svc.CreateSession(context.Background(), SessionRequest{
		ServiceOption: OptionComplete,
		CustomerEmail: "jane@example.com",
		ReturnURL:     "http://localhost:3000/payment-success?session_id={CHECKOUT_SESSION_ID}",
		Embedded:      true,
		Metadata:      map[string]string{"source": "web", "serviceOption": "spoofed"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.ID)
	assert.Equal(t, "cs_test_123_secret", session.ClientSecret)

	require.Len(t, api.created, 1)
	params := api.created[0]
	assert.Equal(t, "embedded", stripe.StringValue(params.UIMode))
	assert.Equal(t, "http://localhost:3000/payment-success?session_id={CHECKOUT_SESSION_ID}", stripe.StringValue(params.ReturnURL))
	assert.Nil(t, params.SuccessURL)
	assert.Nil(t, params.CancelURL)
	assert.Equal(t, "payment", stripe.StringValue(params.Mode))
	assert.Equal(t, "jane@example.com", stripe.StringValue(params.CustomerEmail))
	require.Len(t, params.PaymentMethodTypes, 1)
	assert.Equal(t, "card", *params.PaymentMethodTypes[0])

	require.Len(t, params.LineItems, 1)
	item := params.LineItems[0]
	assert.Equal(t, int64(1), stripe.Int64Value(item.Quantity))
	assert.Equal(t, int64(990), stripe.Int64Value(item.PriceData.UnitAmount))
	assert.Equal(t, "usd", stripe.StringValue(item.PriceData.Currency))
	assert.Equal(t, "Complete CV Package", stripe.StringValue(item.PriceData.ProductData.Name))

	assert.Equal(t, map[string]string{"source": "web", "serviceOption": "complete", "paymentMode": "test"}, params.Metadata)

	require.NotNil(t, params.PaymentMethodOptions)
	assert.Equal(t, "automatic", stripe.StringValue(params.PaymentMethodOptions.Card.RequestThreeDSecure))
}

func TestCreateSessionRedirectLiveMode(t *testing.T) {
	api := &fakeSessions{}
	svc := newTestService(api, ModeLive)

	_, err := svc.CreateSession(context.Background(), SessionRequest{
		ServiceOption: OptionAnalysis,
		CustomerEmail: "jane@example.com",
		SuccessURL:    "https://app.example.com/payment-success",
		CancelURL:     "https://app.example.com/payment-cancel",
	})
	require.NoError(t, err)

	params := api.created[0]
	assert.Nil(t, params.UIMode)
	assert.Nil(t, params.ReturnURL)
	assert.Equal(t, "https://app.example.com/payment-success", stripe.StringValue(params.SuccessURL))
	assert.Equal(t, "https://app.example.com/payment-cancel", stripe.StringValue(params.CancelURL))
	assert.Nil(t, params.PaymentMethodOptions)
	assert.Equal(t, "live", params.Metadata["paymentMode"])
	assert.False(t, svc.IsTestMode())
}

func TestCreateSessionPropagatesGatewayError(t *testing.T) {
	api := &fakeSessions{newErr: errors.New("card_declined")}
	svc := newTestService(api, ModeTest)

	_, err := svc.CreateSession(context.Background(), SessionRequest{ServiceOption: OptionImproved, CustomerEmail: "a@b.co"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card_declined")
}

func TestGetSessionMapsFields(t *testing.T) {
	api := &fakeSessions{get: &stripe.CheckoutSession{
		ID:            "cs_live_1",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{"serviceOption": "analysis"},
	}}
	svc := newTestService(api, ModeLive)

	session, err := svc.GetSession(context.Background(), "cs_live_1")
	require.NoError(t, err)
	assert.Equal(t, "cs_live_1", api.gotID)
	assert.True(t, session.Paid())
	assert.Equal(t, "analysis", session.Metadata["serviceOption"])
}

func TestUnknownModeFallsBackToTest(t *testing.T) {
	svc := newTestService(&fakeSessions{}, "sandbox")
	assert.True(t, svc.IsTestMode())
	assert.Equal(t, "test", svc.Mode())
	assert.Equal(t, "pk_test_abc", svc.PublishableKey())
}

func TestVerifyWebhookRejectsBadSignature(t *testing.T) {
	svc := newTestService(&fakeSessions{}, ModeTest)

	_, err := svc.VerifyWebhook([]byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Webhook signature verification failed")
}

func TestVerifyWebhookDecodesSignedEvent(t *testing.T) {
	svc := newTestService(&fakeSessions{}, ModeTest)
	payload, header := signedEvent(t, "whsec_test", "checkout.session.completed")

	event, err := svc.VerifyWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_test_1", event.ID)
	assert.Equal(t, "checkout.session.completed", event.Type)
	assert.Equal(t, "cs_test_123", event.ObjectID)
	assert.Equal(t, "paid", event.Object["payment_status"])
}
