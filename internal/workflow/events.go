package workflow

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartcv-backend/internal/shared/telemetry"
)

// Funnel event names with their funnel position.
const (
	EventPageView         = "page_view"
	EventStep1Success     = "step_1_success"
	EventStep2Start       = "step_2_start"
	EventPaymentInitiated = "payment_initiated"
	EventPaymentSuccess   = "payment_success"
)

var funnelSteps = map[string]struct {
	step     string
	position int
}{
	EventPageView:         {"landing", 1},
	EventStep1Success:     {"form_complete", 2},
	EventStep2Start:       {"pricing_view", 3},
	EventPaymentInitiated: {"payment_start", 4},
	EventPaymentSuccess:   {"payment_complete", 5},
}

// EventSender delivers one event. APIClient implements it.
type EventSender interface {
	TrackEvent(ctx context.Context, event map[string]any) error
}

// Tracker sends funnel events in the background. Failures are logged only.
type Tracker struct {
	sender    EventSender
	sessionID string
	now       func() time.Time
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewTracker builds a Tracker with a fresh per-process session id.
func NewTracker(sender EventSender) *Tracker {
	return &Tracker{
		sender:    sender,
		sessionID: "session_" + uuid.NewString(),
		now:       time.Now,
		timeout:   5 * time.Second,
	}
}

// SessionID returns the id attached to every event.
func (t *Tracker) SessionID() string { return t.sessionID }

// Track sends name with data. It never blocks on the network.
func (t *Tracker) Track(name string, data map[string]any) {
	if t == nil || t.sender == nil {
		return
	}
	event := t.build(name, data)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.sender.TrackEvent(ctx, event); err != nil {
			telemetry.Warn("analytics.send_failed", map[string]any{"event": name, "error": err})
		}
	}()
}

// Wait blocks until in-flight events finish. Short-lived processes call it before exit.
func (t *Tracker) Wait() {
	if t != nil {
		t.wg.Wait()
	}
}

func (t *Tracker) build(name string, data map[string]any) map[string]any {
	event := map[string]any{
		"timestamp": t.now().UTC().Format(time.RFC3339Nano),
		"event":     name,
	}
	if fs, ok := funnelSteps[name]; ok {
		event["step"] = fs.step
		event["funnel_step"] = fs.position
	}
	for k, v := range data {
		event[k] = v
	}
	event["sessionId"] = t.sessionID
	event["userAgent"] = "cvctl (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
	return event
}

func (t *Tracker) PageView() {
	t.Track(EventPageView, nil)
}

func (t *Tracker) Step1Success(s State) {
	data := map[string]any{
		"hasFile":           s.CVFile != nil,
		"hasRole":           s.Role != "",
		"hasJobDescription": s.JobDescription != "",
		"fileSize":          s.CVFile.Size(),
	}
	if s.CVFile != nil {
		data["fileName"] = s.CVFile.Name
		data["fileType"] = s.CVFile.ContentType
	}
	t.Track(EventStep1Success, data)
}

func (t *Tracker) Step2Start(s State) {
	t.Track(EventStep2Start, map[string]any{"selectedPlan": nullable(s.SelectedOption)})
}

func (t *Tracker) PaymentInitiated(s State, price float64) {
	t.Track(EventPaymentInitiated, map[string]any{
		"selectedPlan":  s.SelectedOption,
		"customerEmail": s.CustomerEmail,
		"termsAccepted": s.TermsAccepted,
		"price":         price,
	})
}

func (t *Tracker) PaymentSuccess(checkoutSessionID, option string, amount float64) {
	t.Track(EventPaymentSuccess, map[string]any{
		"checkoutSessionId": checkoutSessionID,
		"selectedPlan":      option,
		"amount":            amount,
	})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
