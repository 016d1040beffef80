package workflow

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smartcv-backend/internal/shared/telemetry"
)

// StoreTTL is how long a saved form stays valid.
const StoreTTL = time.Hour

type storedFile struct {
	Data string `json:"data"`
	Type string `json:"type"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

type storedForm struct {
	Role              string      `json:"role"`
	JobDescription    string      `json:"jobDescription"`
	SelectedOption    *string     `json:"selectedOption"`
	Timestamp         int64       `json:"timestamp"`
	CVFile            *storedFile `json:"cvFile,omitempty"`
	Step              Step        `json:"step,omitempty"`
	TermsAccepted     bool        `json:"termsAccepted,omitempty"`
	CustomerEmail     string      `json:"customerEmail,omitempty"`
	CouponCode        string      `json:"couponCode,omitempty"`
	CouponValid       bool        `json:"couponValid,omitempty"`
	CheckoutSessionID string      `json:"checkoutSessionId,omitempty"`
	PaymentMode       string      `json:"paymentMode,omitempty"`
	Paid              bool        `json:"paid,omitempty"`
	LastDownload      string      `json:"lastDownload,omitempty"`
}

// Store keeps the form in a JSON file between runs.
type Store struct {
	Path string
	Now  func() time.Time
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{Path: path, Now: time.Now}
}

// DefaultStorePath is the form file under the user config dir.
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "smartcv", "form.json")
}

func (st *Store) now() time.Time {
	if st.Now != nil {
		return st.Now()
	}
	return time.Now()
}

// Save writes the form. The CV file is stored base64-encoded.
func (st *Store) Save(s State) error {
	rec := storedForm{
		Role:              s.Role,
		JobDescription:    s.JobDescription,
		Timestamp:         st.now().UnixMilli(),
		Step:              s.Step,
		TermsAccepted:     s.TermsAccepted,
		CustomerEmail:     s.CustomerEmail,
		CouponCode:        s.CouponCode,
		CouponValid:       s.CouponValid,
		CheckoutSessionID: s.CheckoutSessionID,
		PaymentMode:       s.PaymentMode,
		Paid:              s.Paid,
		LastDownload:      s.LastDownload,
	}
	if s.SelectedOption != "" {
		opt := s.SelectedOption
		rec.SelectedOption = &opt
	}
	if s.CVFile != nil {
		rec.CVFile = &storedFile{
			Data: base64.StdEncoding.EncodeToString(s.CVFile.Data),
			Type: s.CVFile.ContentType,
			Name: s.CVFile.Name,
			Size: s.CVFile.Size(),
		}
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(st.Path), 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp := st.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write form: %w", err)
	}
	return os.Rename(tmp, st.Path)
}

// Load restores the form. ok is false when nothing is stored, the record is
// older than StoreTTL, or it cannot be decoded; the last two also clear it.
func (st *Store) Load() (State, bool) {
	raw, err := os.ReadFile(st.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			telemetry.Warn("form.load_failed", map[string]any{"path": st.Path, "error": err})
		}
		return New(), false
	}

	var rec storedForm
	if err := json.Unmarshal(raw, &rec); err != nil {
		telemetry.Warn("form.decode_failed", map[string]any{"path": st.Path, "error": err})
		st.Clear()
		return New(), false
	}
	if st.now().Sub(time.UnixMilli(rec.Timestamp)) > StoreTTL {
		telemetry.Info("form.expired", map[string]any{"path": st.Path})
		st.Clear()
		return New(), false
	}

	s := New()
	s.Role = rec.Role
	s.JobDescription = rec.JobDescription
	if rec.SelectedOption != nil {
		s.SelectedOption = *rec.SelectedOption
	}
	if rec.Step >= StepForm && rec.Step <= StepPricing {
		s.Step = rec.Step
	}
	s.TermsAccepted = rec.TermsAccepted
	s.CustomerEmail = rec.CustomerEmail
	s.CouponCode = rec.CouponCode
	s.CouponValid = rec.CouponValid
	s.CheckoutSessionID = rec.CheckoutSessionID
	s.PaymentMode = rec.PaymentMode
	s.Paid = rec.Paid
	s.LastDownload = rec.LastDownload

	if rec.CVFile != nil {
		data, err := base64.StdEncoding.DecodeString(rec.CVFile.Data)
		if err != nil {
			telemetry.Warn("form.decode_failed", map[string]any{"path": st.Path, "error": err})
			st.Clear()
			return New(), false
		}
		s.CVFile = &File{Name: rec.CVFile.Name, ContentType: rec.CVFile.Type, Data: data}
	}
	return s, true
}

// Exists reports whether a form file is present.
func (st *Store) Exists() bool {
	_, err := os.Stat(st.Path)
	return err == nil
}

// Clear removes the stored form.
func (st *Store) Clear() {
	if err := os.Remove(st.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		telemetry.Warn("form.clear_failed", map[string]any{"path": st.Path, "error": err})
	}
}
