package compose

import (
	"strings"
	"testing"
	"time"

	"smartcv-backend/resume/model"
)

func sampleAnalysis() model.AnalysisResult {
	return model.AnalysisResult{
		MatchScore:             68,
		Summary:                "Strong Go background, light on cloud.",
		MissingKeywords:        []string{"Kubernetes", "Terraform"},
		CriticalGaps:           []string{"No production AWS experience"},
		ActionableFixes:        []string{"Quantify API latency wins"},
		InterviewPrepQuestions: []string{"How do you design idempotent webhooks?", "Explain context cancellation."},
	}
}

func sampleCV() model.ImprovedCV {
	return model.ImprovedCV{
		FullName:            "Ada Lovelace",
		Title:               "Backend Engineer",
		ContactInfo:         "ada@example.com | +44 20 79460958 | London, United Kingdom",
		ProfessionalSummary: "Engineer focused on reliable payment systems.",
		TechnicalSkillsList: []string{"Go", "PostgreSQL"},
		Experience: []model.Experience{{
			Company:      "Analytical Engines Ltd",
			Role:         "Senior Engineer",
			Dates:        "2019 - Present",
			BulletPoints: []string{"Cut checkout latency by 40%"},
		}},
		Education: "BSc Mathematics | 2012 - 2015 | University of London",
		Languages: []string{"English: Native", "French"},
	}
}

func TestReportContainsSections(t *testing.T) {
	html, err := Report(sampleAnalysis(), time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	for _, want := range []string{
		"CV Analysis Report",
		"AI Career Matcher",
		"68/100",
		"Match Score",
		`<span class="keyword">Kubernetes</span>`,
		"No production AWS experience",
		"Quantify API latency wins",
		`<span class="question-number">Q1:</span>`,
		`<span class="question-number">Q2:</span>`,
		"Generated by AI Career Matcher | March 14, 2026",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected report to contain %q", want)
		}
	}
}

func TestReportEscapesModelOutput(t *testing.T) {
	a := sampleAnalysis()
	a.Summary = `<script>alert("x")</script>`
	html, err := Report(a, time.Now())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("expected summary to be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Fatalf("expected escaped script tag in output")
	}
}

func TestClassicLayout(t *testing.T) {
	html, err := CV(sampleCV(), LayoutClassic)
	if err != nil {
		t.Fatalf("cv: %v", err)
	}
	for _, want := range []string{
		`<h1 class="cv-name">Ada Lovelace</h1>`,
		"Professional Summary",
		"Professional Experience",
		"Cut checkout latency by 40%",
		`<span class="skill">PostgreSQL</span>`,
		`<p class="education-degree">BSc Mathematics | 2012 - 2015 | University of London</p>`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected classic CV to contain %q", want)
		}
	}
	if strings.Contains(html, "LANGUAGES") {
		t.Fatalf("classic layout should not render the sidebar")
	}
}

func TestClassicLayoutSkipsEmptySections(t *testing.T) {
	html, err := CV(model.ImprovedCV{FullName: "Only Name"}, LayoutClassic)
	if err != nil {
		t.Fatalf("cv: %v", err)
	}
	for _, absent := range []string{"Professional Summary", "Professional Experience", "Technical Skills", "Education"} {
		if strings.Contains(html, absent) {
			t.Fatalf("expected %q to be omitted", absent)
		}
	}
}

func TestSidebarLayout(t *testing.T) {
	html, err := CV(sampleCV(), LayoutSidebar)
	if err != nil {
		t.Fatalf("cv: %v", err)
	}
	for _, want := range []string{
		"CONTACT",
		"ada@example.com",
		"&#43;44 20 79460958",
		"London, United Kingdom",
		"SKILLS",
		"LANGUAGES",
		"English: Native",
		"French: Proficient",
		"PROFILE",
		"WORK EXPERIENCE",
		"EDUCATION",
		`<div class="education-row">BSc Mathematics | 2012 - 2015 | University of London</div>`,
		`<div class="title">Backend Engineer</div>`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected sidebar CV to contain %q", want)
		}
	}
}

func TestLayoutString(t *testing.T) {
	if LayoutClassic.String() != "Template1" || LayoutSidebar.String() != "Template2" {
		t.Fatalf("unexpected layout names: %s %s", LayoutClassic, LayoutSidebar)
	}
	if len(Layouts) != 2 {
		t.Fatalf("expected two layouts")
	}
}
