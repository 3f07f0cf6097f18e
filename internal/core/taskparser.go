package core

import (
	"regexp"
	"strings"

	"github.com/parabrain-dev/parabrain/pkg/models"
)

// priorityMap translates shorthand priority markers to priority values.
var priorityMap = map[string]models.TaskPriority{
	"p1": models.PriorityHigh,
	"p2": models.PriorityMedium,
	"p3": models.PriorityLow,
}

// statusMap translates status commands to task status values.
var statusMap = map[string]models.TaskStatus{
	"!done":     models.StatusDone,
	"!progress": models.StatusInProgress,
	"!blocked":  models.StatusBlocked,
	"!backlog":  models.StatusBacklog,
}

// domainAliases normalizes shorthand domain markers in task indicators.
var domainAliases = map[string]string{
	"just-value": "Just-Value",
	"justvalue":  "Just-Value",
	"jv":         "Just-Value",
	"personal":   "Personal",
	"ccbh":       "CCBH",
}

var (
	taskPrefixPattern = regexp.MustCompile(`(?i)^(todo|kanban):\s*`)
	domainPattern     = regexp.MustCompile(`(?i)\bdomain:(\S+)`)
	projectPattern    = regexp.MustCompile(`(?i)\bproject:(\S+)`)
	priorityPattern   = regexp.MustCompile(`(?i)\b(p[123])\b`)
)

// ParseTaskIndicators extracts task markers from a captured message.
// Messages starting with "todo:" or "kanban:" are tasks; the remaining
// text may carry domain:, project: and p1/p2/p3 markers, all of which
// are removed from the clean text.
func ParseTaskIndicators(text string) models.TaskIndicators {
	result := models.TaskIndicators{
		Priority:  models.PriorityMedium,
		CleanText: text,
	}

	prefix := taskPrefixPattern.FindStringSubmatch(text)
	if prefix == nil {
		return result
	}

	result.IsTask = true
	result.View = strings.ToLower(prefix[1])

	working := strings.TrimSpace(taskPrefixPattern.ReplaceAllString(text, ""))

	if m := domainPattern.FindStringSubmatch(working); m != nil {
		raw := strings.ToLower(m[1])
		if alias, ok := domainAliases[raw]; ok {
			result.Domain = alias
		} else {
			result.Domain = titleCase(raw)
		}
		working = domainPattern.ReplaceAllString(working, "")
	}

	if m := projectPattern.FindStringSubmatch(working); m != nil {
		result.Project = strings.ToLower(m[1])
		working = projectPattern.ReplaceAllString(working, "")
	}

	if m := priorityPattern.FindStringSubmatch(working); m != nil {
		if p, ok := priorityMap[strings.ToLower(m[1])]; ok {
			result.Priority = p
		}
		working = priorityPattern.ReplaceAllString(working, "")
	}

	result.CleanText = strings.Join(strings.Fields(working), " ")

	return result
}

// IsStatusCommand reports whether the text is exactly a status command
// like "!done" or "!blocked", ignoring case and surrounding whitespace.
func IsStatusCommand(text string) bool {
	_, ok := statusMap[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// ParseStatusCommand maps a status command to its task status value.
// The boolean result is false when the text is not a status command.
func ParseStatusCommand(text string) (models.TaskStatus, bool) {
	status, ok := statusMap[strings.ToLower(strings.TrimSpace(text))]
	return status, ok
}

// titleCase uppercases the first letter of each hyphen- or space-separated
// word, matching how unknown domain markers are displayed.
func titleCase(s string) string {
	runes := []rune(s)
	upperNext := true
	for i, r := range runes {
		if upperNext && r >= 'a' && r <= 'z' {
			runes[i] = r - 'a' + 'A'
		}
		upperNext = r == '-' || r == ' ' || r == '_'
	}
	return string(runes)
}
