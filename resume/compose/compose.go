// Package compose turns analysis and CV records into self-contained HTML
// documents ready for PDF rendering.
package compose

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"smartcv-backend/resume/model"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// Layout selects one of the CV designs.
type Layout int

const (
	// LayoutClassic is the single-column CV (Template1).
	LayoutClassic Layout = 1
	// LayoutSidebar is the two-column CV with a dark contact sidebar (Template2).
	LayoutSidebar Layout = 2
)

// Layouts lists every CV layout in output order.
var Layouts = []Layout{LayoutClassic, LayoutSidebar}

func (l Layout) String() string {
	switch l {
	case LayoutClassic:
		return "Template1"
	case LayoutSidebar:
		return "Template2"
	default:
		return fmt.Sprintf("Template%d", int(l))
	}
}

var templates = template.Must(template.New("compose").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.html.tmpl"))

type reportView struct {
	model.AnalysisResult
	GeneratedOn string
}

// Report renders the analysis report. generated is printed in the footer.
func Report(analysis model.AnalysisResult, generated time.Time) (string, error) {
	return execute("report.html.tmpl", reportView{
		AnalysisResult: analysis,
		GeneratedOn:    generated.Format("January 2, 2006"),
	})
}

type sidebarView struct {
	model.ImprovedCV
	Contact       model.Contact
	Langs         []model.Language
	EducationRows []string
}

// CV renders the improved CV with the given layout. Unknown layouts fall back to classic.
func CV(cv model.ImprovedCV, layout Layout) (string, error) {
	if layout == LayoutSidebar {
		return execute("cv_sidebar.html.tmpl", sidebarView{
			ImprovedCV:    cv,
			Contact:       model.ParseContact(cv.ContactInfo),
			Langs:         cv.ParsedLanguages(),
			EducationRows: cv.EducationLines(),
		})
	}
	return execute("cv_classic.html.tmpl", cv)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("compose %s: %w", name, err)
	}
	return buf.String(), nil
}
