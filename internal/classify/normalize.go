package classify

import (
	"sort"
	"strconv"
	"strings"

	"github.com/parabrain-dev/parabrain/pkg/models"
)

// defaultReasoning is substituted when a response carries no reasoning.
const defaultReasoning = "Classification by LLM"

// The normalizers below are total, pure functions over (raw value, valid
// set): they never fail and always return a member of the valid set, falling
// back to the documented default. Exact case-insensitive matches are
// authoritative; partial matches are a best-effort secondary tier.

// NormalizeDomain maps a raw domain onto the vocabulary: exact
// case-insensitive match, then substring containment in either direction,
// then the default domain. First match in slice order wins.
func NormalizeDomain(raw string, validDomains []string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DefaultDomain
	}

	rawLower := strings.ToLower(raw)
	for _, valid := range validDomains {
		if strings.ToLower(valid) == rawLower {
			return valid
		}
	}
	for _, valid := range validDomains {
		validLower := strings.ToLower(valid)
		if strings.Contains(validLower, rawLower) || strings.Contains(rawLower, validLower) {
			return valid
		}
	}
	return models.DefaultDomain
}

// NormalizeCategoryGroup maps a raw group onto the fixed enumeration: exact
// case-insensitive match, then partial match against the canonical form or
// its suffix token (so a bare "Projects" resolves to "1_Projects"), then the
// default group.
func NormalizeCategoryGroup(raw string) models.CategoryGroup {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DefaultCategoryGroup
	}

	rawLower := strings.ToLower(raw)
	for _, valid := range models.CategoryGroups() {
		if strings.ToLower(string(valid)) == rawLower {
			return valid
		}
	}
	for _, valid := range models.CategoryGroups() {
		validLower := strings.ToLower(string(valid))
		suffix := validLower[strings.LastIndex(validLower, "_")+1:]
		if strings.Contains(validLower, rawLower) || strings.Contains(rawLower, suffix) {
			return valid
		}
	}
	return models.DefaultCategoryGroup
}

// NormalizeSubcategory maps a raw subcategory onto the discovered
// vocabulary. The "general" sentinel short-circuits to the default. Search
// widens in three tiers, reflecting the prior that a subcategory is most
// likely correct within its intended placement: (a) scoped to
// domain+group, (b) anywhere in the domain, (c) anywhere in the vault.
// First case-insensitive exact match wins at each tier; map keys are
// visited in sorted order so tie-breaks are deterministic.
func NormalizeSubcategory(raw string, structure models.Structure, domain string, group models.CategoryGroup) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, models.DefaultSubcategory) {
		return models.DefaultSubcategory
	}

	if groups, ok := structure[domain]; ok {
		if sub := matchSubcategory(raw, groups[string(group)]); sub != "" {
			return sub
		}
		for _, g := range sortedGroupKeys(groups) {
			if sub := matchSubcategory(raw, groups[g]); sub != "" {
				return sub
			}
		}
	}

	for _, d := range structure.Domains() {
		groups := structure[d]
		for _, g := range sortedGroupKeys(groups) {
			if sub := matchSubcategory(raw, groups[g]); sub != "" {
				return sub
			}
		}
	}
	return models.DefaultSubcategory
}

func matchSubcategory(raw string, candidates []string) string {
	for _, valid := range candidates {
		if strings.EqualFold(valid, raw) {
			return valid
		}
	}
	return ""
}

func sortedGroupKeys(groups map[string][]string) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NormalizeCategoryLabel maps a raw label onto the fixed enumeration by
// exact case-insensitive match, else the default label.
func NormalizeCategoryLabel(raw string) models.CategoryLabel {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DefaultCategoryLabel
	}
	for _, valid := range models.CategoryLabels() {
		if strings.EqualFold(string(valid), raw) {
			return valid
		}
	}
	return models.DefaultCategoryLabel
}

// NormalizeConfidence coerces a raw confidence of any type into [0, 1].
// Numeric input is clamped, never rejected for being out of range;
// non-coercible model output falls back to the default. The bounds are
// inclusive: 0.0 and 1.0 pass through unchanged.
func NormalizeConfidence(raw any) float64 {
	var conf float64
	switch v := raw.(type) {
	case float64:
		conf = v
	case float32:
		conf = float64(v)
	case int:
		conf = float64(v)
	case int64:
		conf = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return models.DefaultConfidence
		}
		conf = parsed
	default:
		return models.DefaultConfidence
	}

	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

// NormalizeReasoning passes reasoning through, substituting a generic
// explanation when absent.
func NormalizeReasoning(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return defaultReasoning
	}
	return raw
}
