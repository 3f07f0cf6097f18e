package classify

import (
	"encoding/json"
	"regexp"
)

// RawFields holds whatever could be recovered from a model response before
// validation. Empty strings and a nil Confidence mean the field was absent;
// defaulting is the normalizer's job, not the parser's.
type RawFields struct {
	Domain        string
	CategoryGroup string
	Subcategory   string
	CategoryLabel string
	Reasoning     string

	// Confidence is float64 when recovered from JSON, string when recovered
	// by regex, nil when absent. Coercion happens in NormalizeConfidence.
	Confidence any
}

// Empty reports whether no field at all was recovered.
func (f RawFields) Empty() bool {
	return f.Domain == "" && f.CategoryGroup == "" && f.Subcategory == "" &&
		f.CategoryLabel == "" && f.Reasoning == "" && f.Confidence == nil
}

// jsonObjectPattern locates the first brace-delimited object substring; the
// model may surround its JSON with commentary.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{[^{}]*\}`)

// fieldPatterns recover individual fields when the JSON itself is malformed.
var fieldPatterns = map[string]*regexp.Regexp{
	"domain":     regexp.MustCompile(`"domain"\s*:\s*"([^"]+)"`),
	"para_type":  regexp.MustCompile(`"para_type"\s*:\s*"([^"]+)"`),
	"subject":    regexp.MustCompile(`"subject"\s*:\s*"([^"]+)"`),
	"category":   regexp.MustCompile(`"category"\s*:\s*"([^"]+)"`),
	"confidence": regexp.MustCompile(`"confidence"\s*:\s*"?([0-9.]+)"?`),
	"reasoning":  regexp.MustCompile(`"reasoning"\s*:\s*"([^"]+)"`),
}

// Parse recovers classification fields from raw model output. It tries
// strict JSON extraction first, then per-field regex recovery. The second
// return value is false when neither strategy yielded any field, so callers
// can distinguish "could not parse" from "parsed but invalid". Parse never
// fails on malformed input.
func Parse(raw string) (RawFields, bool) {
	if fields, ok := parseJSON(raw); ok {
		return fields, true
	}
	fields := parseRegex(raw)
	return fields, !fields.Empty()
}

// parseJSON extracts the first embedded JSON object and maps its keys onto
// RawFields. Returns ok=false when no valid object is present.
func parseJSON(raw string) (RawFields, bool) {
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return RawFields{}, false
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return RawFields{}, false
	}

	fields := RawFields{
		Domain:        stringField(parsed, "domain"),
		CategoryGroup: stringField(parsed, "para_type"),
		Subcategory:   stringField(parsed, "subject"),
		CategoryLabel: stringField(parsed, "category"),
		Reasoning:     stringField(parsed, "reasoning"),
	}
	if conf, ok := parsed["confidence"]; ok {
		fields.Confidence = conf
	}
	return fields, true
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func parseRegex(raw string) RawFields {
	var fields RawFields
	if m := fieldPatterns["domain"].FindStringSubmatch(raw); m != nil {
		fields.Domain = m[1]
	}
	if m := fieldPatterns["para_type"].FindStringSubmatch(raw); m != nil {
		fields.CategoryGroup = m[1]
	}
	if m := fieldPatterns["subject"].FindStringSubmatch(raw); m != nil {
		fields.Subcategory = m[1]
	}
	if m := fieldPatterns["category"].FindStringSubmatch(raw); m != nil {
		fields.CategoryLabel = m[1]
	}
	if m := fieldPatterns["confidence"].FindStringSubmatch(raw); m != nil {
		fields.Confidence = m[1]
	}
	if m := fieldPatterns["reasoning"].FindStringSubmatch(raw); m != nil {
		fields.Reasoning = m[1]
	}
	return fields
}
