package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartcv-backend/internal/shared/telemetry"
	"smartcv-backend/internal/shared/util"
)

// PlanPrices are the list prices shown on the pricing step, in USD.
var PlanPrices = map[string]float64{
	OptionAnalysis: 3.90,
	OptionImproved: 6.90,
	OptionComplete: 9.90,
}

// Processor performs one pipeline round trip. APIClient implements it.
type Processor interface {
	Process(ctx context.Context, path string, f File, role, jobDescription string) (Download, error)
}

// Runner submits the form and saves the returned file.
type Runner struct {
	API    Processor
	OutDir string
	Now    func() time.Time
}

// ProcessCV validates the pricing step, calls the endpoint for the selected
// option and writes the download to OutDir. Loading is false on return.
func (r *Runner) ProcessCV(ctx context.Context, s State) State {
	if s.Loading {
		return s
	}
	if s.SelectedOption == "" {
		return s.SetError(MsgSelectOption)
	}
	if !s.TermsAccepted {
		return s.SetError(MsgAcceptTerms)
	}
	path, ok := Endpoint(s.SelectedOption)
	if !ok {
		return s.SetError(MsgInvalidOption)
	}
	if !s.FormValid() {
		return s.SetError(MsgRequiredFields)
	}

	s.Loading = true
	s.Error = ""
	s = r.submit(ctx, s, path)
	s.Loading = false
	return s
}

func (r *Runner) submit(ctx context.Context, s State, path string) State {
	dl, err := r.API.Process(ctx, path, *s.CVFile, s.Role, s.JobDescription)
	if err != nil {
		telemetry.Error("workflow.process_failed", map[string]any{"option": s.SelectedOption, "error": err})
		return s.SetError(UserMessage(err))
	}

	name := dl.FileName
	if name == "" {
		name = fallbackName(s.SelectedOption, r.now())
	}
	// the name comes from the server, keep only the base
	name, err = util.SanitizeFileName(filepath.Base(name))
	if err != nil {
		name = fallbackName(s.SelectedOption, r.now())
	}

	dir := r.OutDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.SetError(fmt.Sprintf("Could not save download: %v", err))
	}
	dest := filepath.Join(dir, name)
	if err := os.WriteFile(dest, dl.Body, 0o644); err != nil {
		return s.SetError(fmt.Sprintf("Could not save download: %v", err))
	}

	telemetry.Info("workflow.download_saved", map[string]any{"path": dest, "bytes": len(dl.Body), "option": s.SelectedOption})
	s.LastDownload = dest
	return s
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func fallbackName(option string, now time.Time) string {
	ts := now.UnixMilli()
	switch strings.TrimSpace(option) {
	case OptionAnalysis:
		return fmt.Sprintf("CV-Analysis-Report-%d.pdf", ts)
	case OptionImproved:
		return fmt.Sprintf("Improved-CV-%d.zip", ts)
	default:
		return fmt.Sprintf("CV-Analysis-%d.zip", ts)
	}
}
