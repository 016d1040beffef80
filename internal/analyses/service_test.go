package analyses

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"smartcv-backend/internal/extract"
	"smartcv-backend/internal/extract/extracttest"
	"smartcv-backend/internal/llm"
	"smartcv-backend/internal/uploads"
	"smartcv-backend/resume/model"
)

type fakeLLM struct {
	mu          sync.Mutex
	analyzeErr  error
	rewriteErr  error
	targets     []string
	rewriteSeen bool
}

func (f *fakeLLM) Analyze(ctx context.Context, text, target string) (model.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	if f.analyzeErr != nil {
		return model.AnalysisResult{}, f.analyzeErr
	}
	if !strings.Contains(text, "Jordan Lee") {
		return model.AnalysisResult{}, fmt.Errorf("unexpected resume text %q", text)
	}
	return model.AnalysisResult{
		MatchScore:             81,
		Summary:                "Strong match.",
		MissingKeywords:        []string{"Kafka"},
		CriticalGaps:           []string{"No streaming"},
		ActionableFixes:        []string{"Add metrics"},
		InterviewPrepQuestions: []string{"Why Go?"},
	}, nil
}

func (f *fakeLLM) Rewrite(ctx context.Context, text, target string, analysis model.AnalysisResult) (model.ImprovedCV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewriteSeen = true
	if f.rewriteErr != nil {
		return model.ImprovedCV{}, f.rewriteErr
	}
	return model.ImprovedCV{FullName: "Jordan Lee", ContactInfo: "jordan@example.com"}, nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
	htmls []string
}

func (r *fakeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.htmls = append(r.htmls, html)
	if r.err != nil {
		return nil, r.err
	}
	return []byte(fmt.Sprintf("%%PDF-1.4 doc %d", r.calls)), nil
}

type fixture struct {
	svc      *Service
	llm      *fakeLLM
	renderer *fakeRenderer
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{llm: &fakeLLM{}, renderer: &fakeRenderer{}, dir: dir}
	f.svc = &Service{
		Uploads:   uploads.NewStore(dir, 10<<20),
		Extractor: extract.FileExtractor{},
		LLM:       f.llm,
		Renderer:  f.renderer,
		Now:       func() time.Time { return time.UnixMilli(1700000000123) },
	}
	return f
}

func (f *fixture) assertNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp upload to be removed, found %d entries", len(entries))
	}
}

func pdfRequest() Request {
	return Request{
		FileName: "cv.pdf",
		File:     bytes.NewReader(extracttest.PDF("Jordan Lee Backend Engineer")),
		Role:     "Backend Engineer",
	}
}

func TestRunAnalysisReturnsSinglePDF(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.Run(context.Background(), VariantAnalysis, pdfRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.ContentType != ContentTypePDF {
		t.Fatalf("expected pdf content type, got %s", out.ContentType)
	}
	if out.FileName != "CV-Analysis-Report-1700000000123.pdf" {
		t.Fatalf("unexpected file name %s", out.FileName)
	}
	if f.llm.rewriteSeen {
		t.Fatalf("analysis variant must not rewrite")
	}
	if f.renderer.calls != 1 || !strings.Contains(f.renderer.htmls[0], "81/100") {
		t.Fatalf("expected one report render, got %d", f.renderer.calls)
	}
	f.assertNoTempFiles(t)
}

func TestRunCompleteReturnsZipWithThreeEntries(t *testing.T) {
	f := newFixture(t)
	req := pdfRequest()
	req.JobDescription = "Senior Go engineer with Kafka"

	out, err := f.svc.Run(context.Background(), VariantComplete, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.ContentType != ContentTypeZip || out.FileName != "CV-Analysis-1700000000123.zip" {
		t.Fatalf("unexpected output %s %s", out.ContentType, out.FileName)
	}
	names := zipNames(t, out.Body)
	want := []string{
		"CV-Analysis-Report-1700000000123.pdf",
		"Your-Improved-CV-Template1-1700000000123.pdf",
		"Your-Improved-CV-Template2-1700000000123.pdf",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected entries %v", names)
	}
	if f.llm.targets[0] != "Senior Go engineer with Kafka" {
		t.Fatalf("expected job description as target, got %q", f.llm.targets[0])
	}
	f.assertNoTempFiles(t)
}

func TestRunImprovedZipsTwoTemplates(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.Run(context.Background(), VariantImproved, pdfRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.FileName != "Improved-CV-1700000000123.zip" {
		t.Fatalf("unexpected file name %s", out.FileName)
	}
	if names := zipNames(t, out.Body); len(names) != 2 {
		t.Fatalf("expected 2 entries, got %v", names)
	}
	if f.llm.targets[0] != "Backend Engineer" {
		t.Fatalf("expected role as target, got %q", f.llm.targets[0])
	}
	if !strings.Contains(f.renderer.htmls[1], "Backend Engineer") {
		t.Fatalf("expected role to fill the CV title")
	}
}

func TestRunValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{name: "missing file", req: Request{Role: "Engineer"}, want: "CV file is required"},
		{name: "missing role", req: Request{FileName: "cv.pdf", File: strings.NewReader("x")}, want: "Role is required"},
		{name: "unsupported", req: Request{FileName: "cv.txt", File: strings.NewReader("x"), Role: "Engineer"}, want: "Unsupported file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Run(context.Background(), VariantComplete, tt.req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if err.Error() != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, err.Error())
			}
		})
	}
	f.assertNoTempFiles(t)
}

func TestRunUnsupportedMatchesExtractSentinel(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Run(context.Background(), VariantAnalysis, Request{FileName: "cv.png", File: strings.NewReader("x"), Role: "r"})
	if !errors.Is(err, extract.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestRunStageErrorsCarryPrefix(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		setup   func(f *fixture)
		req     func() Request
		stage   string
		prefix  string
	}{
		{
			name:    "extract",
			variant: VariantAnalysis,
			req: func() Request {
				return Request{FileName: "cv.pdf", File: strings.NewReader("not a pdf"), Role: "r"}
			},
			stage:  StageExtract,
			prefix: "Text extraction failed: ",
		},
		{
			name:    "analyze",
			variant: VariantAnalysis,
			setup:   func(f *fixture) { f.llm.analyzeErr = errors.New("OpenAI API error: boom") },
			req:     pdfRequest,
			stage:   StageAnalyze,
			prefix:  "CV Analysis failed: OpenAI API error: boom",
		},
		{
			name:    "rewrite",
			variant: VariantComplete,
			setup:   func(f *fixture) { f.llm.rewriteErr = errors.New("OpenAI API error (CV improvement): boom") },
			req:     pdfRequest,
			stage:   StageRewrite,
			prefix:  "CV Improvement failed: OpenAI API error (CV improvement): boom",
		},
		{
			name:    "render",
			variant: VariantComplete,
			setup:   func(f *fixture) { f.renderer.err = errors.New("chrome crashed") },
			req:     pdfRequest,
			stage:   StageRender,
			prefix:  "PDF generation failed: chrome crashed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.svc.Run(context.Background(), tt.variant, tt.req())
			var se *StageError
			if !errors.As(err, &se) {
				t.Fatalf("expected StageError, got %v", err)
			}
			if se.Stage != tt.stage {
				t.Fatalf("expected stage %s, got %s", tt.stage, se.Stage)
			}
			if !strings.HasPrefix(err.Error(), tt.prefix) {
				t.Fatalf("expected prefix %q, got %q", tt.prefix, err.Error())
			}
			f.assertNoTempFiles(t)
		})
	}
}

func TestRunSchemaErrorIsDetectable(t *testing.T) {
	f := newFixture(t)
	f.llm.analyzeErr = fmt.Errorf("OpenAI API error: %w", &llm.SchemaError{Document: llm.DocumentAnalysis, Problems: []string{"match_score: Must be less than or equal to 100"}})

	_, err := f.svc.Run(context.Background(), VariantAnalysis, pdfRequest())
	var schemaErr *llm.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError through stage wrapper, got %v", err)
	}
}

func TestRunTooLarge(t *testing.T) {
	f := newFixture(t)
	f.svc.Uploads = uploads.NewStore(f.dir, 16)

	_, err := f.svc.Run(context.Background(), VariantAnalysis, pdfRequest())
	if !errors.Is(err, uploads.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	f.assertNoTempFiles(t)
}

func TestRequestTarget(t *testing.T) {
	if got := (Request{Role: " SRE ", JobDescription: "  "}).Target(); got != "SRE" {
		t.Fatalf("expected role fallback, got %q", got)
	}
	if got := (Request{Role: "SRE", JobDescription: "Run Kubernetes"}).Target(); got != "Run Kubernetes" {
		t.Fatalf("expected job description, got %q", got)
	}
}

func zipNames(t *testing.T, body []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}
