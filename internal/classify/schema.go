package classify

import (
	"fmt"

	"github.com/parabrain-dev/parabrain/pkg/models"
)

// ValidationError reports a malformed classification payload received from
// a caller (as opposed to malformed model output, which is always absorbed
// by defaulting). It is never raised for model responses.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid classification payload: %s: %s", e.Field, e.Reason)
}

// ValidatePayload validates an externally supplied classification object
// (e.g. a manual filing request) against the vocabulary and returns a
// normalized result. Unlike model-output normalization, structural problems
// here are contract violations and fail with *ValidationError:
// a missing or empty domain, or a confidence that is not a number.
// A numeric confidence out of [0, 1] is clamped, not rejected.
func ValidatePayload(data map[string]any, structure models.Structure) (*models.ClassificationResult, error) {
	if data == nil {
		return nil, &ValidationError{Field: "payload", Reason: "must be an object"}
	}

	rawDomain, ok := data["domain"].(string)
	if !ok || rawDomain == "" {
		return nil, &ValidationError{Field: "domain", Reason: "required and must be a string"}
	}

	confidence := models.DefaultConfidence
	if rawConf, present := data["confidence"]; present {
		switch v := rawConf.(type) {
		case float64:
			confidence = clamp(v)
		case int:
			confidence = clamp(float64(v))
		default:
			return nil, &ValidationError{Field: "confidence", Reason: fmt.Sprintf("must be a number, got %T", rawConf)}
		}
	}

	vocab := structure.Flatten()
	domain := NormalizeDomain(rawDomain, vocab.Domains)
	group := NormalizeCategoryGroup(stringField(data, "para_type"))

	return &models.ClassificationResult{
		Domain:        domain,
		CategoryGroup: group,
		Subcategory:   NormalizeSubcategory(stringField(data, "subject"), structure, domain, group),
		CategoryLabel: NormalizeCategoryLabel(stringField(data, "category")),
		Confidence:    confidence,
		Reasoning:     NormalizeReasoning(stringField(data, "reasoning")),
	}, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
