package llm

import (
	"context"
	"fmt"
	"time"

	"smartcv-backend/internal/shared/telemetry"
	"smartcv-backend/resume/model"
)

// Options tunes the gateway's requests.
type Options struct {
	Temperature      float32
	RewriteMaxTokens int
}

// Gateway runs the analyze and rewrite prompts against a provider and
// validates each reply before decoding it.
type Gateway struct {
	completer Completer
	opts      Options
}

// NewGateway builds a Gateway. Zero options fall back to package defaults.
func NewGateway(c Completer, opts Options) *Gateway {
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.RewriteMaxTokens <= 0 {
		opts.RewriteMaxTokens = DefaultRewriteMaxTokens
	}
	return &Gateway{completer: c, opts: opts}
}

// Provider returns the provider name.
func (g *Gateway) Provider() string {
	return g.completer.Name()
}

// Analyze scores resumeText against target.
func (g *Gateway) Analyze(ctx context.Context, resumeText, target string) (model.AnalysisResult, error) {
	req, err := AnalyzePrompt(resumeText, target)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	req.Temperature = g.opts.Temperature

	raw, err := g.complete(ctx, "analyze", req)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%s API error: %w", g.completer.Name(), err)
	}
	result, err := ValidateAnalysis(raw)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%s API error: %w", g.completer.Name(), err)
	}
	return result, nil
}

// Rewrite produces an improved CV that addresses the analysis findings.
func (g *Gateway) Rewrite(ctx context.Context, resumeText, target string, analysis model.AnalysisResult) (model.ImprovedCV, error) {
	req, err := RewritePrompt(resumeText, target, analysis)
	if err != nil {
		return model.ImprovedCV{}, err
	}
	req.Temperature = g.opts.Temperature
	req.MaxTokens = g.opts.RewriteMaxTokens

	raw, err := g.complete(ctx, "rewrite", req)
	if err != nil {
		return model.ImprovedCV{}, fmt.Errorf("%s API error (CV improvement): %w", g.completer.Name(), err)
	}
	cv, err := ValidateImprovedCV(raw)
	if err != nil {
		return model.ImprovedCV{}, fmt.Errorf("%s API error (CV improvement): %w", g.completer.Name(), err)
	}
	return cv, nil
}

func (g *Gateway) complete(ctx context.Context, stage string, req Request) ([]byte, error) {
	start := time.Now()
	raw, err := g.completer.Complete(ctx, req)
	fields := map[string]any{
		"provider":    g.completer.Name(),
		"stage":       stage,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err
		telemetry.Warn("llm.failed", fields)
		return nil, err
	}
	fields["bytes"] = len(raw)
	telemetry.Info("llm.complete", fields)
	return raw, nil
}
