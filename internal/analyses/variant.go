package analyses

import (
	"fmt"

	"smartcv-backend/resume/compose"
)

// Variant selects which documents a run produces.
type Variant string

const (
	VariantComplete Variant = "complete"
	VariantAnalysis Variant = "analysis"
	VariantImproved Variant = "improved"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	switch v {
	case VariantComplete, VariantAnalysis, VariantImproved:
		return true
	}
	return false
}

func (v Variant) wantsReport() bool { return v == VariantComplete || v == VariantAnalysis }

func (v Variant) wantsCV() bool { return v == VariantComplete || v == VariantImproved }

func reportName(ts int64) string {
	return fmt.Sprintf("CV-Analysis-Report-%d.pdf", ts)
}

func cvName(layout compose.Layout, ts int64) string {
	return fmt.Sprintf("Your-Improved-CV-%s-%d.pdf", layout, ts)
}

func archiveName(v Variant, ts int64) string {
	if v == VariantImproved {
		return fmt.Sprintf("Improved-CV-%d.zip", ts)
	}
	return fmt.Sprintf("CV-Analysis-%d.zip", ts)
}
