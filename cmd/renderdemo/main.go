package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smartcv-backend/internal/shared/config"
	"smartcv-backend/resume/compose"
	"smartcv-backend/resume/model"
	"smartcv-backend/resume/render"
)

type page struct {
	name string
	html string
}

func main() {
	cfg := config.Load()

	outDir := flag.String("out", "./out", "output directory")
	htmlOnly := flag.Bool("html-only", false, "write HTML without launching Chrome")
	flag.Parse()

	pages, err := buildPages(time.Now())
	if err != nil {
		exitErr(fmt.Sprintf("compose failed: %v", err))
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		exitErr(fmt.Sprintf("create output dir: %v", err))
	}

	renderer := render.NewChromeRenderer(render.Options{ChromePath: cfg.ChromePath, Timeout: cfg.RenderTimeout})
	for _, p := range pages {
		htmlPath := filepath.Join(*outDir, p.name+".html")
		if err := os.WriteFile(htmlPath, []byte(p.html), 0o644); err != nil {
			exitErr(fmt.Sprintf("write %s: %v", htmlPath, err))
		}
		if *htmlOnly {
			fmt.Printf("OK: wrote %s\n", htmlPath)
			continue
		}

		pdf, err := renderer.Render(context.Background(), p.html)
		if err != nil {
			exitErr(fmt.Sprintf("render %s: %v", p.name, err))
		}
		pdfPath := filepath.Join(*outDir, p.name+".pdf")
		if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
			exitErr(fmt.Sprintf("write %s: %v", pdfPath, err))
		}
		fmt.Printf("OK: wrote %s (%d bytes)\n", pdfPath, len(pdf))
	}
}

func buildPages(now time.Time) ([]page, error) {
	report, err := compose.Report(sampleAnalysis(), now)
	if err != nil {
		return nil, err
	}
	pages := []page{{name: "report", html: report}}

	cv := sampleCV()
	for _, layout := range compose.Layouts {
		html, err := compose.CV(cv, layout)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page{name: "cv-" + layout.String(), html: html})
	}
	return pages, nil
}

func sampleAnalysis() model.AnalysisResult {
	return model.AnalysisResult{
		MatchScore:      72,
		Summary:         "Solid backend profile with strong Go experience. Cloud and observability depth is under-represented for this role.",
		MissingKeywords: []string{"Kubernetes", "Terraform", "Prometheus", "gRPC", "SLOs"},
		CriticalGaps:    []string{"No evidence of on-call or incident ownership", "Infrastructure-as-code not mentioned"},
		ActionableFixes: []string{
			"Quantify latency and throughput wins in the Acme role",
			"Add a line about Terraform modules you maintained",
			"Move the skills section above education",
		},
		InterviewPrepQuestions: []string{
			"Walk me through a production incident you led.",
			"How would you design rate limiting for a public API?",
			"What trade-offs did you make when choosing Postgres over DynamoDB?",
		},
	}
}

func sampleCV() model.ImprovedCV {
	return model.ImprovedCV{
		FullName:            "Jane Doe",
		Title:               "Senior Backend Engineer",
		ContactInfo:         "jane.doe@example.com | +44 20 7946 0958 | London, UK",
		ProfessionalSummary: "Backend engineer with 8 years building payment and data platforms in Go and Python.",
		TechnicalSkillsList: []string{"Go", "PostgreSQL", "Kubernetes", "Terraform", "Prometheus", "gRPC"},
		Experience: []model.Experience{
			{
				Company: "Acme Payments",
				Role:    "Senior Backend Engineer",
				Dates:   "2021 - Present",
				BulletPoints: []string{
					"Cut p99 checkout latency from 480ms to 120ms by reworking the ledger write path",
					"Owned the on-call rotation for 6 services and wrote the incident runbooks",
				},
			},
			{
				Company: "DataCo",
				Role:    "Software Engineer",
				Dates:   "2017 - 2021",
				BulletPoints: []string{
					"Built a streaming ingest pipeline processing 2B events per day",
				},
			},
		},
		Education: "BSc Computer Science | University of Leeds | 2013 - 2017",
		Languages: []string{"English (Native)", "Spanish (Professional)"},
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
