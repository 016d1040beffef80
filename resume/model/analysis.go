package model

import (
	"errors"
	"fmt"
	"strings"
)

// AnalysisResult is the structured assessment of a CV against a role or job description.
type AnalysisResult struct {
	MatchScore             int      `json:"match_score"`
	Summary                string   `json:"summary"`
	MissingKeywords        []string `json:"missing_keywords"`
	CriticalGaps           []string `json:"critical_gaps"`
	ActionableFixes        []string `json:"actionable_fixes"`
	InterviewPrepQuestions []string `json:"interview_prep_questions"`
}

// Validate enforces the score range and required summary.
func (a AnalysisResult) Validate() error {
	if a.MatchScore < 0 || a.MatchScore > 100 {
		return fmt.Errorf("match_score must be between 0 and 100, got %d", a.MatchScore)
	}
	if strings.TrimSpace(a.Summary) == "" {
		return errors.New("summary is required")
	}
	return nil
}

// Normalize trims every string and drops blank list entries.
func (a AnalysisResult) Normalize() AnalysisResult {
	a.Summary = strings.TrimSpace(a.Summary)
	a.MissingKeywords = compact(a.MissingKeywords)
	a.CriticalGaps = compact(a.CriticalGaps)
	a.ActionableFixes = compact(a.ActionableFixes)
	a.InterviewPrepQuestions = compact(a.InterviewPrepQuestions)
	return a
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
