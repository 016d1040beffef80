package llm

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"smartcv-backend/resume/model"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Document names used in SchemaError.
const (
	DocumentAnalysis   = "analysis"
	DocumentImprovedCV = "improved_cv"
)

var (
	analysisSchema   = mustSchema("schemas/analysis.schema.json")
	improvedCVSchema = mustSchema("schemas/improved_cv.schema.json")
)

func mustSchema(name string) *gojsonschema.Schema {
	b, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		panic(fmt.Sprintf("load %s: %v", name, err))
	}
	return schema
}

// SchemaError reports a model reply that does not match the expected document shape.
type SchemaError struct {
	Document string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s response failed schema validation: %s", e.Document, strings.Join(e.Problems, "; "))
}

func validateDocument(schema *gojsonschema.Schema, document string, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return &SchemaError{Document: document, Problems: []string{"response is not valid JSON"}}
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &SchemaError{Document: document, Problems: []string{err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	return &SchemaError{Document: document, Problems: problems}
}

// ValidateAnalysis checks raw against the analysis schema and decodes it.
func ValidateAnalysis(raw json.RawMessage) (model.AnalysisResult, error) {
	var out model.AnalysisResult
	if err := validateDocument(analysisSchema, DocumentAnalysis, raw); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &SchemaError{Document: DocumentAnalysis, Problems: []string{err.Error()}}
	}
	out = out.Normalize()
	if err := out.Validate(); err != nil {
		return out, &SchemaError{Document: DocumentAnalysis, Problems: []string{err.Error()}}
	}
	return out, nil
}

// ValidateImprovedCV checks raw against the improved CV schema and decodes it.
func ValidateImprovedCV(raw json.RawMessage) (model.ImprovedCV, error) {
	var out model.ImprovedCV
	if err := validateDocument(improvedCVSchema, DocumentImprovedCV, raw); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &SchemaError{Document: DocumentImprovedCV, Problems: []string{err.Error()}}
	}
	out = out.Normalize()
	if err := out.Validate(); err != nil {
		return out, &SchemaError{Document: DocumentImprovedCV, Problems: []string{err.Error()}}
	}
	return out, nil
}
