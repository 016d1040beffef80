package analyses

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"smartcv-backend/internal/extract"
	"smartcv-backend/internal/shared/metrics"
	"smartcv-backend/internal/shared/telemetry"
	"smartcv-backend/internal/uploads"
	"smartcv-backend/resume/compose"
	"smartcv-backend/resume/model"
	"smartcv-backend/resume/render"
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypeZip = "application/zip"
)

// LLM is the subset of the gateway the pipeline needs.
type LLM interface {
	Analyze(ctx context.Context, resumeText, target string) (model.AnalysisResult, error)
	Rewrite(ctx context.Context, resumeText, target string, analysis model.AnalysisResult) (model.ImprovedCV, error)
}

// Request is one uploaded CV plus its targeting fields.
type Request struct {
	FileName       string
	File           io.Reader
	Role           string
	JobDescription string
}

// Target is the text the CV is matched against: the job description when
// present, otherwise the role.
func (r Request) Target() string {
	if jd := strings.TrimSpace(r.JobDescription); jd != "" {
		return jd
	}
	return strings.TrimSpace(r.Role)
}

// Output is the downloadable result of a run.
type Output struct {
	FileName    string
	ContentType string
	Body        []byte
}

type document struct {
	name string
	body []byte
}

// Service runs the upload → extract → LLM → render → package pipeline.
type Service struct {
	Uploads   *uploads.Store
	Extractor extract.Extractor
	LLM       LLM
	Renderer  render.Renderer
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Validate checks the request before any work is done.
func Validate(req Request) error {
	if req.File == nil || strings.TrimSpace(req.FileName) == "" {
		return &InputError{Message: "CV file is required"}
	}
	if strings.TrimSpace(req.Role) == "" {
		return &InputError{Message: "Role is required"}
	}
	if !extract.IsSupported(req.FileName) {
		return &InputError{Message: extract.ErrUnsupportedType.Error(), Cause: extract.ErrUnsupportedType}
	}
	return nil
}

// Run executes every stage for v. The temp upload is removed before Run returns.
func (s *Service) Run(ctx context.Context, v Variant, req Request) (out Output, err error) {
	if !v.Valid() {
		return Output{}, &InputError{Message: fmt.Sprintf("unknown variant %q", v)}
	}
	if err := Validate(req); err != nil {
		return Output{}, err
	}

	start := time.Now()
	metrics.IncPipelineStarted(string(v))
	defer func() {
		if err != nil {
			stage := "input"
			var se *StageError
			if errors.As(err, &se) {
				stage = se.Stage
			}
			metrics.IncPipelineFailed(string(v), stage)
			telemetry.Warn("pipeline.failed", map[string]any{"variant": v, "stage": stage, "error": err})
			return
		}
		metrics.IncPipelineCompleted(string(v))
		metrics.ObservePipelineDuration(string(v), time.Since(start))
	}()

	file, err := s.Uploads.Save(ctx, req.FileName, req.File)
	if err != nil {
		if errors.Is(err, uploads.ErrTooLarge) {
			return Output{}, err
		}
		return Output{}, stageErr(StageUpload, err)
	}
	defer s.Uploads.Remove(file.Path)

	target := req.Target()
	var text string
	if err := timed(StageExtract, func() error {
		var err error
		text, err = s.Extractor.ExtractText(ctx, file.Path, file.Ext)
		return err
	}); err != nil {
		return Output{}, err
	}

	var analysis model.AnalysisResult
	if err := timed(StageAnalyze, func() error {
		var err error
		analysis, err = s.LLM.Analyze(ctx, text, target)
		return err
	}); err != nil {
		return Output{}, err
	}

	var cv model.ImprovedCV
	if v.wantsCV() {
		if err := timed(StageRewrite, func() error {
			var err error
			cv, err = s.LLM.Rewrite(ctx, text, target, analysis)
			return err
		}); err != nil {
			return Output{}, err
		}
		if cv.Title == "" {
			cv.Title = strings.TrimSpace(req.Role)
		}
	}

	ts := s.now().UnixMilli()
	var docs []document
	if err := timed(StageRender, func() error {
		var err error
		docs, err = s.renderAll(ctx, v, analysis, cv, ts)
		return err
	}); err != nil {
		return Output{}, err
	}

	if len(docs) == 1 {
		return Output{FileName: docs[0].name, ContentType: ContentTypePDF, Body: docs[0].body}, nil
	}

	var archive []byte
	if err := timed(StagePackage, func() error {
		var err error
		archive, err = zipDocuments(docs, s.now())
		return err
	}); err != nil {
		return Output{}, err
	}
	return Output{FileName: archiveName(v, ts), ContentType: ContentTypeZip, Body: archive}, nil
}

func (s *Service) renderAll(ctx context.Context, v Variant, analysis model.AnalysisResult, cv model.ImprovedCV, ts int64) ([]document, error) {
	var docs []document
	if v.wantsReport() {
		html, err := compose.Report(analysis, s.now())
		if err != nil {
			return nil, err
		}
		pdf, err := s.Renderer.Render(ctx, html)
		if err != nil {
			return nil, err
		}
		docs = append(docs, document{name: reportName(ts), body: pdf})
	}
	if v.wantsCV() {
		for _, layout := range compose.Layouts {
			html, err := compose.CV(cv, layout)
			if err != nil {
				return nil, err
			}
			pdf, err := s.Renderer.Render(ctx, html)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", layout, err)
			}
			docs = append(docs, document{name: cvName(layout, ts), body: pdf})
		}
	}
	return docs, nil
}

func zipDocuments(docs []document, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, d := range docs {
		dst, err := w.CreateHeader(&zip.FileHeader{
			Name:     d.name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, err
		}
		if _, err := dst.Write(d.body); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveStageDuration(stage, time.Since(start))
	if err != nil {
		return stageErr(stage, err)
	}
	return nil
}
