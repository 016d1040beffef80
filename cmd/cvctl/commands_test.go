package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcv-backend/internal/coupons"
	"smartcv-backend/internal/workflow"
)

type fakeService struct {
	mu       sync.Mutex
	uploads  []string
	verified bool
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/validate-coupon", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if coupons.Normalize(body["couponCode"]) != "SAVE10" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"valid":false,"error":"Invalid coupon code"}`))
			return
		}
		_, _ = w.Write([]byte(`{"valid":true,"message":"Coupon code is valid"}`))
	})
	mux.HandleFunc("/api/create-checkout-session", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sessionId":"cs_test_1","url":"https://checkout.example/cs_test_1","paymentMode":"test"}`))
	})
	mux.HandleFunc("/api/verify-session", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		f.mu.Lock()
		defer f.mu.Unlock()
		f.verified = true
		_, _ = w.Write([]byte(`{"paid":true,"sessionId":"cs_test_1","paymentMode":"test","metadata":{"serviceOption":"complete"}}`))
	})
	for _, path := range []string{"/api/analyze-only", "/api/improve-only", "/api/analyze-cv"} {
		path := path
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.mu.Lock()
			f.uploads = append(f.uploads, path)
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("Content-Disposition", `attachment; filename="CV-Analysis-42.zip"`)
			_, _ = w.Write([]byte("PK zip"))
		})
	}
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/analytics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	return mux
}

type nopSender struct{}

func (nopSender) TrackEvent(context.Context, map[string]any) error { return nil }

type harness struct {
	api   string
	store string
	out   string
}

func (h harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := &cli{tracker: workflow.NewTracker(nopSender{})}
	root := newRootCmd(c)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--api", h.api, "--store", h.store, "--out", h.out}, args...))
	err := root.Execute()
	c.tracker.Wait()
	return buf.String(), err
}

func newHarness(t *testing.T) (harness, *fakeService) {
	t.Helper()
	svc := &fakeService{}
	srv := httptest.NewServer(svc.handler(t))
	t.Cleanup(srv.Close)
	dir := t.TempDir()
	return harness{api: srv.URL, store: filepath.Join(dir, "form.json"), out: filepath.Join(dir, "out")}, svc
}

func writeCV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cv.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 cv"), 0o600))
	return path
}

func TestCouponFlowDownloadsResult(t *testing.T) {
	h, svc := newHarness(t)

	_, err := h.run(t, "form", "--file", writeCV(t), "--role", "Backend Engineer", "--jd", "Go, Postgres")
	require.NoError(t, err)
	_, err = h.run(t, "next")
	require.NoError(t, err)
	out, err := h.run(t, "next")
	require.NoError(t, err)
	assert.Contains(t, out, "pricing")

	_, err = h.run(t, "select", "complete")
	require.NoError(t, err)
	_, err = h.run(t, "terms", "accept")
	require.NoError(t, err)

	_, err = h.run(t, "process")
	require.EqualError(t, err, workflow.MsgPaymentRequired)

	_, err = h.run(t, "coupon", "NOPE")
	require.EqualError(t, err, "Invalid coupon code")

	out, err = h.run(t, "coupon", "save10")
	require.NoError(t, err)
	assert.Contains(t, out, "Coupon code is valid")

	out, err = h.run(t, "process")
	require.NoError(t, err)
	saved := filepath.Join(h.out, "CV-Analysis-42.zip")
	assert.Contains(t, out, saved)
	body, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "PK zip", string(body))
	assert.Equal(t, []string{"/api/analyze-cv"}, svc.uploads)

	// a finished purchase goes back to the form with inputs kept
	out, err = h.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Step 1/3: form")
	assert.Contains(t, out, "cv.pdf")
	assert.Contains(t, out, "Backend Engineer")
}

func TestCheckoutAndVerifyUnlockProcessing(t *testing.T) {
	h, svc := newHarness(t)

	_, err := h.run(t, "form", "--file", writeCV(t), "--role", "SRE")
	require.NoError(t, err)
	_, _ = h.run(t, "next")
	_, _ = h.run(t, "next")
	_, err = h.run(t, "select", "complete")
	require.NoError(t, err)

	_, err = h.run(t, "checkout", "--email", "a@b.co")
	require.EqualError(t, err, workflow.MsgAcceptTerms)

	_, err = h.run(t, "terms", "accept")
	require.NoError(t, err)

	_, err = h.run(t, "verify")
	require.EqualError(t, err, workflow.MsgSessionRequired)

	out, err := h.run(t, "checkout", "--email", "a@b.co")
	require.NoError(t, err)
	assert.Contains(t, out, "https://checkout.example/cs_test_1")

	out, err = h.run(t, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "Payment confirmed")
	assert.True(t, svc.verified)

	_, err = h.run(t, "process")
	require.NoError(t, err)
}

func TestFormRejectsUnsupportedFile(t *testing.T) {
	h, _ := newHarness(t)
	path := filepath.Join(t.TempDir(), "cv.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain"), 0o600))

	_, err := h.run(t, "form", "--file", path, "--role", "Dev")
	require.EqualError(t, err, workflow.MsgFileType)

	_, err = h.run(t, "next")
	require.EqualError(t, err, workflow.MsgRequiredFields)
}

func TestSelectRejectsUnknownOption(t *testing.T) {
	h, _ := newHarness(t)
	_, err := h.run(t, "select", "platinum")
	require.EqualError(t, err, workflow.MsgInvalidOption)
}

func TestResetAndHealth(t *testing.T) {
	h, _ := newHarness(t)
	_, err := h.run(t, "form", "--role", "Dev")
	require.NoError(t, err)

	out, err := h.run(t, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Form cleared")
	_, statErr := os.Stat(h.store)
	assert.True(t, os.IsNotExist(statErr))

	out, err = h.run(t, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}
