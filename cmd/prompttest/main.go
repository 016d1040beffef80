package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"smartcv-backend/internal/bootstrap"
	"smartcv-backend/internal/extract"
	"smartcv-backend/internal/llm"
	"smartcv-backend/internal/shared/config"
	"smartcv-backend/internal/shared/util"
)

func main() {
	cfg := config.Load()

	resumePath := flag.String("resume", "", "Path to CV file (pdf or docx)")
	role := flag.String("role", "", "Target role")
	jdPath := flag.String("jd", "", "Path to job description file (optional)")
	outPath := flag.String("out", "", "Path to write the combined JSON output (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider (openai or gemini)")
	skipRewrite := flag.Bool("analyze-only", false, "Stop after the analysis stage")
	flag.Parse()

	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}
	if strings.TrimSpace(*role) == "" {
		exitErr("role is required")
	}
	ext := util.FileExt(*resumePath)
	if !extract.IsSupported(ext) {
		exitErr(fmt.Sprintf("unsupported resume file type: %s", ext))
	}

	ctx := context.Background()
	resumeText, err := extract.FileExtractor{}.ExtractText(ctx, *resumePath, ext)
	if err != nil {
		exitErr(fmt.Sprintf("extract resume text: %v", err))
	}

	target := strings.TrimSpace(*role)
	if strings.TrimSpace(*jdPath) != "" {
		jdBytes, err := os.ReadFile(*jdPath)
		if err != nil {
			exitErr(fmt.Sprintf("read job description: %v", err))
		}
		if jd := strings.TrimSpace(string(jdBytes)); jd != "" {
			target = jd
		}
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(*provider))
	completer, err := bootstrap.NewCompleter(ctx, cfg)
	if err != nil {
		exitErr(err.Error())
	}
	gateway := llm.NewGateway(completer, llm.Options{
		Temperature:      float32(cfg.LLMTemperature),
		RewriteMaxTokens: cfg.RewriteMaxTokens,
	})

	analysis, err := gateway.Analyze(ctx, resumeText, target)
	if err != nil {
		exitErr(fmt.Sprintf("analyze: %v", err))
	}
	result := map[string]any{"provider": gateway.Provider(), "analysis": analysis}

	if !*skipRewrite {
		cv, err := gateway.Rewrite(ctx, resumeText, target, analysis)
		if err != nil {
			exitErr(fmt.Sprintf("rewrite: %v", err))
		}
		result["improved_cv"] = cv
	}

	raw, err := json.Marshal(result)
	if err != nil {
		exitErr(fmt.Sprintf("encode json: %v", err))
	}
	pretty, err := prettyJSON(raw)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(append(pretty, '\n')); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
