// Package workflow is the client side of the CV service: a three-step form
// state machine, an HTTP client for every endpoint, local form persistence
// and funnel event tracking.
package workflow

import (
	"strings"

	"smartcv-backend/internal/extract"
)

// Step is the position in the form flow.
type Step int

const (
	StepForm    Step = 1
	StepPreview Step = 2
	StepPricing Step = 3
)

func (s Step) String() string {
	switch s {
	case StepForm:
		return "form"
	case StepPreview:
		return "preview"
	case StepPricing:
		return "pricing"
	default:
		return "unknown"
	}
}

// MaxFileBytes is the client-side upload limit.
const MaxFileBytes = 10 << 20

// Service options offered on the pricing step.
const (
	OptionAnalysis = "analysis"
	OptionImproved = "improved"
	OptionComplete = "complete"
)

// Content types accepted for the CV.
const (
	ContentTypePDF  = extract.MimePDF
	ContentTypeDOCX = extract.MimeDOCX
)

// Error messages shown to the user.
const (
	MsgSelectFile        = "Please select a CV file"
	MsgFileTooLarge      = "File size must be less than 10MB"
	MsgFileType          = "Only PDF and DOCX files are allowed"
	MsgRequiredFields    = "Please fill in all required fields"
	MsgSelectOption      = "Please select a service option"
	MsgAcceptTerms       = "Please accept the terms of service"
	MsgInvalidOption     = "Invalid service option"
	MsgGenericFailure    = "An error occurred. Please try again."
	MsgCouponRequired    = "Coupon code is required"
	MsgEmailRequired     = "Customer email is required"
	MsgSessionRequired   = "Session ID is required"
	MsgPaymentRequired   = "Payment required: complete checkout or apply a coupon"
	MsgPaymentIncomplete = "Payment not completed"
)

// File is an in-memory CV upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the file length in bytes.
func (f *File) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Data)
}

// ContentTypeFor maps a file name to the content type the form would report.
func ContentTypeFor(name string) string {
	if ct := extract.MimeFor(name); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// State is the whole client flow. Transitions are value methods that return
// the next State and leave the receiver untouched.
type State struct {
	CVFile         *File
	Role           string
	JobDescription string
	SelectedOption string
	TermsAccepted  bool

	Step           Step
	ShowUpsell     bool
	ShowTermsModal bool
	Loading        bool
	Error          string

	CustomerEmail     string
	CouponCode        string
	CouponValid       bool
	CheckoutSessionID string
	PaymentMode       string
	Paid              bool

	LastDownload string
}

// New returns the initial state.
func New() State {
	return State{Step: StepForm}
}

// FormValid reports whether step 1 is complete.
func (s State) FormValid() bool {
	return s.CVFile != nil && strings.TrimSpace(s.Role) != ""
}

// CanSubmit reports whether ProcessCV would attempt a request.
func (s State) CanSubmit() bool {
	return s.SelectedOption != "" && s.TermsAccepted && !s.Loading
}

// Unlocked reports whether the purchase is covered by a payment or coupon.
func (s State) Unlocked() bool {
	return s.Paid || s.CouponValid
}

// SetCVFile validates and stores the file. A rejected file clears the slot.
func (s State) SetCVFile(f *File) State {
	if msg := validateFile(f); msg != "" {
		s.CVFile = nil
		s.Error = msg
		return s
	}
	s.CVFile = f
	s.Error = ""
	return s
}

func validateFile(f *File) string {
	switch {
	case f == nil:
		return MsgSelectFile
	case f.Size() > MaxFileBytes:
		return MsgFileTooLarge
	case f.ContentType != ContentTypePDF && f.ContentType != ContentTypeDOCX:
		return MsgFileType
	}
	return ""
}

// SetRole stores the target role and clears any error.
func (s State) SetRole(role string) State {
	s.Role = role
	s.Error = ""
	return s
}

// SetJobDescription stores the optional job description.
func (s State) SetJobDescription(jd string) State {
	s.JobDescription = jd
	return s
}

// SelectOption picks a service option and clears any error.
func (s State) SelectOption(option string) State {
	s.SelectedOption = option
	s.Error = ""
	return s
}

// SetTermsAccepted records the terms checkbox.
func (s State) SetTermsAccepted(accepted bool) State {
	s.TermsAccepted = accepted
	return s
}

// SetError sets the message shown to the user.
func (s State) SetError(msg string) State {
	s.Error = msg
	return s
}

// Next advances one step. Leaving the form requires a file and a role.
func (s State) Next() State {
	switch s.Step {
	case StepForm:
		if !s.FormValid() {
			s.Error = MsgRequiredFields
			return s
		}
		s.Error = ""
		s.Step = StepPreview
	case StepPreview:
		s.Error = ""
		s.Step = StepPricing
	}
	return s
}

// Previous goes back one step and withdraws terms acceptance.
func (s State) Previous() State {
	if s.Step > StepForm {
		s.Step--
	}
	s.Error = ""
	s.TermsAccepted = false
	return s
}

// Reset returns to an empty form.
func (s State) Reset() State {
	return New()
}

// ResetAfterSuccess keeps the form inputs and restarts the flow.
func (s State) ResetAfterSuccess() State {
	next := New()
	next.CVFile = s.CVFile
	next.Role = s.Role
	next.JobDescription = s.JobDescription
	next.LastDownload = s.LastDownload
	return next
}

// ShowUpsellModal shows the upgrade tip for the analysis-only plan.
func (s State) ShowUpsellModal() State {
	s.ShowUpsell = true
	return s
}

// HideUpsell dismisses the upgrade tip.
func (s State) HideUpsell() State {
	s.ShowUpsell = false
	return s
}

// OpenTerms shows the terms text.
func (s State) OpenTerms() State {
	s.ShowTermsModal = true
	return s
}

// HideTerms closes the terms text.
func (s State) HideTerms() State {
	s.ShowTermsModal = false
	return s
}

// SetCustomerEmail stores the checkout email.
func (s State) SetCustomerEmail(email string) State {
	s.CustomerEmail = strings.TrimSpace(email)
	return s
}

// ApplyCoupon records the outcome of a coupon check.
func (s State) ApplyCoupon(code string, valid bool, msg string) State {
	s.CouponCode = strings.ToUpper(strings.TrimSpace(code))
	s.CouponValid = valid
	s.Error = msg
	return s
}

// StartCheckout records a created checkout session. Any previous payment is void.
func (s State) StartCheckout(sessionID, mode string) State {
	s.CheckoutSessionID = sessionID
	s.PaymentMode = mode
	s.Paid = false
	s.Error = ""
	return s
}

// MarkPaid records a verified checkout session.
func (s State) MarkPaid(paid bool) State {
	s.Paid = paid
	if paid {
		s.Error = ""
	}
	return s
}
