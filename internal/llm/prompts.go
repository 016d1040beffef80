package llm

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"smartcv-backend/resume/model"
)

//go:embed prompts/*.txt prompts/*.tmpl
var promptFS embed.FS

var (
	analyzeSystem = mustRead("prompts/analyze_system.txt")
	rewriteSystem = mustRead("prompts/rewrite_system.txt")

	promptTemplates = template.Must(template.New("prompts").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(promptFS, "prompts/*.tmpl"))
)

func mustRead(name string) string {
	b, err := promptFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return strings.TrimSpace(string(b))
}

type analyzeData struct {
	ResumeText string
	Context    string
}

type rewriteData struct {
	ResumeText string
	Context    string
	Analysis   model.AnalysisResult
}

// AnalyzePrompt builds the analysis request.
func AnalyzePrompt(resumeText, target string) (Request, error) {
	user, err := renderPrompt("analyze_user.tmpl", analyzeData{ResumeText: resumeText, Context: target})
	if err != nil {
		return Request{}, err
	}
	return Request{System: analyzeSystem, User: user}, nil
}

// RewritePrompt builds the CV rewrite request from the analysis.
func RewritePrompt(resumeText, target string, analysis model.AnalysisResult) (Request, error) {
	user, err := renderPrompt("rewrite_user.tmpl", rewriteData{ResumeText: resumeText, Context: target, Analysis: analysis})
	if err != nil {
		return Request{}, err
	}
	return Request{System: rewriteSystem, User: user}, nil
}

func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}
