package model

import (
	"errors"
	"regexp"
	"strings"
)

// ImprovedCV is the rewritten CV returned by the LLM.
type ImprovedCV struct {
	FullName            string       `json:"full_name"`
	Title               string       `json:"title,omitempty"`
	ContactInfo         string       `json:"contact_info"`
	ProfessionalSummary string       `json:"professional_summary"`
	TechnicalSkillsList []string     `json:"technical_skills_list"`
	Experience          []Experience `json:"experience"`
	Education           string       `json:"education"`
	// Languages is optional; entries look like "English: Fluent".
	Languages []string `json:"languages,omitempty"`
}

// Experience represents a work history entry.
type Experience struct {
	Company      string   `json:"company"`
	Role         string   `json:"role"`
	Dates        string   `json:"dates"`
	BulletPoints []string `json:"bullet_points"`
}

// Validate requires a name; everything else may be empty.
func (cv ImprovedCV) Validate() error {
	if strings.TrimSpace(cv.FullName) == "" {
		return errors.New("full_name is required")
	}
	return nil
}

// Normalize trims strings and drops blank list entries.
func (cv ImprovedCV) Normalize() ImprovedCV {
	cv.FullName = strings.TrimSpace(cv.FullName)
	cv.Title = strings.TrimSpace(cv.Title)
	cv.ContactInfo = strings.TrimSpace(cv.ContactInfo)
	cv.ProfessionalSummary = strings.TrimSpace(cv.ProfessionalSummary)
	cv.TechnicalSkillsList = compact(cv.TechnicalSkillsList)
	cv.Languages = compact(cv.Languages)
	cv.Education = strings.TrimSpace(cv.Education)
	exps := make([]Experience, 0, len(cv.Experience))
	for _, exp := range cv.Experience {
		exp.Company = strings.TrimSpace(exp.Company)
		exp.Role = strings.TrimSpace(exp.Role)
		exp.Dates = strings.TrimSpace(exp.Dates)
		exp.BulletPoints = compact(exp.BulletPoints)
		if exp.Company == "" && exp.Role == "" && len(exp.BulletPoints) == 0 {
			continue
		}
		exps = append(exps, exp)
	}
	cv.Experience = exps
	return cv
}

// EducationBlock is one education entry split into its lines.
type EducationBlock struct {
	Lines []string
}

// Title is the first line of the block, usually the degree.
func (b EducationBlock) Title() string {
	if len(b.Lines) == 0 {
		return ""
	}
	return b.Lines[0]
}

// Details are the remaining lines.
func (b EducationBlock) Details() []string {
	if len(b.Lines) < 2 {
		return nil
	}
	return b.Lines[1:]
}

var blankLinePattern = regexp.MustCompile(`\n\s*\n`)

// EducationBlocks splits education text into entries separated by blank lines.
func (cv ImprovedCV) EducationBlocks() []EducationBlock {
	text := strings.ReplaceAll(cv.Education, "\r\n", "\n")
	var blocks []EducationBlock
	for _, raw := range blankLinePattern.Split(text, -1) {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			blocks = append(blocks, EducationBlock{Lines: lines})
		}
	}
	return blocks
}

var (
	dateRangePattern = regexp.MustCompile(`(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{4}\s*-\s*(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{4}`)
	yearPattern      = regexp.MustCompile(`\d{4}`)
	leadingYear      = regexp.MustCompile(`^\d{4}`)
)

// EducationLines flattens each education entry into a single
// "Degree | Dates | University" line.
func (cv ImprovedCV) EducationLines() []string {
	var out []string
	for _, block := range cv.EducationBlocks() {
		if block.preformatted() {
			for _, line := range block.Lines {
				out = append(out, strings.Join(compact(strings.Split(line, "|")), " | "))
			}
			continue
		}
		out = append(out, block.singleLine())
	}
	return out
}

// preformatted reports whether every line is already "Degree | Dates | University".
func (b EducationBlock) preformatted() bool {
	for _, line := range b.Lines {
		if !strings.Contains(line, "|") {
			return false
		}
	}
	return len(b.Lines) > 0
}

func (b EducationBlock) singleLine() string {
	lines := b.Lines
	entry := strings.Join(lines, "\n")
	match := dateRangePattern.FindString(entry)
	if match == "" {
		match = yearPattern.FindString(entry)
	}
	dates := match
	if dates == "" && len(lines) > 1 && leadingYear.MatchString(lines[1]) {
		dates = lines[1]
	}

	var university string
	if len(lines) > 1 {
		switch {
		case match != "" && len(lines) > 2:
			university = strings.Join(lines[2:], " ")
		case match == "" || len(lines) == 2:
			university = lines[1]
		}
	}

	parts := []string{lines[0]}
	if dates != "" {
		parts = append(parts, dates)
	}
	if university != "" && university != dates {
		parts = append(parts, university)
	}
	return strings.Join(parts, " | ")
}

// Language is a parsed "Name: Proficiency" entry.
type Language struct {
	Name        string
	Proficiency string
}

// ParsedLanguages splits language entries, defaulting proficiency to "Proficient".
func (cv ImprovedCV) ParsedLanguages() []Language {
	out := make([]Language, 0, len(cv.Languages))
	for _, entry := range cv.Languages {
		name, level, found := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		level = strings.TrimSpace(level)
		if name == "" {
			continue
		}
		if !found || level == "" {
			level = "Proficient"
		}
		out = append(out, Language{Name: name, Proficiency: level})
	}
	return out
}
