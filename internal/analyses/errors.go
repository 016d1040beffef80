package analyses

import "errors"

// ErrInvalidInput marks client input problems; the handler maps it to 400.
var ErrInvalidInput = errors.New("invalid input")

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeTooLarge   = "FILE_TOO_LARGE"
	ErrorCodeStorage    = "STORAGE_ERROR"
	ErrorCodePipeline   = "PIPELINE_ERROR"
	ErrorCodeSchema     = "LLM_SCHEMA_MISMATCH"
)

// Pipeline stages, in execution order.
const (
	StageUpload  = "upload"
	StageExtract = "extract"
	StageAnalyze = "analyze"
	StageRewrite = "rewrite"
	StageRender  = "render"
	StagePackage = "package"
)

var stagePrefixes = map[string]string{
	StageUpload:  "Failed to save upload: ",
	StageExtract: "Text extraction failed: ",
	StageAnalyze: "CV Analysis failed: ",
	StageRewrite: "CV Improvement failed: ",
	StageRender:  "PDF generation failed: ",
	StagePackage: "Packaging failed: ",
}

// InputError is a validation failure with a client-facing message.
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string { return e.Message }

// Is lets errors.Is match both ErrInvalidInput and the wrapped cause.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput || (e.Cause != nil && errors.Is(e.Cause, target))
}

// StageError wraps the first failure of a pipeline run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return stagePrefixes[e.Stage] + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}
