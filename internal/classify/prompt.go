// Package classify implements the classification and normalization pipeline:
// prompt construction, multi-tier response parsing, vocabulary-constrained
// field normalization, and the single-shot and pipeline orchestration
// strategies.
package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parabrain-dev/parabrain/pkg/models"
)

// sopFileOrder lists the SOP documents injected into prompts, in order.
var sopFileOrder = []string{"naming.md", "folder-rules.md", "tasks.md"}

// LoadSOP reads the house-style SOP markdown files from dir and returns
// their concatenated content. The text is injected verbatim into prompts
// and never parsed. A missing directory yields "".
func LoadSOP(dir string) string {
	if dir == "" {
		return ""
	}
	var parts []string
	for _, name := range sopFileOrder {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		parts = append(parts, strings.TrimSpace(string(data)))
	}
	return strings.Join(parts, "\n\n")
}

// PromptBuilder renders vocabulary and message text into classification
// prompts. An optional SOP ruleset is appended to every prompt when set.
type PromptBuilder struct {
	sop string
}

// NewPromptBuilder creates a PromptBuilder with the given SOP text
// (may be empty).
func NewPromptBuilder(sop string) *PromptBuilder {
	return &PromptBuilder{sop: sop}
}

func (b *PromptBuilder) sopSection() string {
	if b.sop == "" {
		return ""
	}
	return "\nSOP (follow when classifying):\n" + b.sop + "\n"
}

func groupList() string {
	groups := models.CategoryGroups()
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

func labelList() string {
	labels := models.CategoryLabels()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

// SingleShot builds the full-schema prompt covering all four axes plus
// confidence and reasoning, grounded with the per-domain subcategory
// listing.
func (b *PromptBuilder) SingleShot(text string, vocab models.Vocabulary, structure models.Structure) string {
	domains := vocab.Domains
	if len(domains) == 0 {
		domains = []string{models.DefaultDomain}
	}

	var subjectLines []string
	for _, domain := range structure.Domains() {
		subs := structure.SubcategoriesFor(domain)
		if len(subs) > 0 {
			subjectLines = append(subjectLines, fmt.Sprintf("  %s: %s", domain, strings.Join(subs, ", ")))
		}
	}
	subjectsSection := "  (no subjects discovered)"
	if len(subjectLines) > 0 {
		subjectsSection = strings.Join(subjectLines, "\n")
	}

	return fmt.Sprintf(`You are a classification assistant for a personal knowledge management system.

VOCABULARY (use ONLY these values):
Domains: %s
PARA Types: %s
Categories: %s

SUBJECTS by domain:
%s
%s
MESSAGE TO CLASSIFY:
%q

Respond with ONLY this JSON (no other text):
{"domain": "...", "para_type": "...", "subject": "...", "category": "...", "confidence": 0.0-1.0, "reasoning": "..."}

RULES:
- domain MUST be one from the Domains list
- para_type MUST be one from PARA Types
- subject should be from the domain's subjects, or "general" if none fit
- category MUST be one from Categories
- confidence between 0.0 and 1.0 based on certainty
- reasoning should be a brief explanation`,
		strings.Join(domains, ", "), groupList(), labelList(), subjectsSection, b.sopSection(), text)
}

// DomainStep builds the first pipeline prompt, resolving the domain only.
func (b *PromptBuilder) DomainStep(text string, domains []string) string {
	if len(domains) == 0 {
		domains = []string{models.DefaultDomain}
	}
	list := strings.Join(domains, ", ")
	return fmt.Sprintf(`You classify messages into ONE domain. Domains: %s.%s

MESSAGE: %q

Respond with ONLY this JSON: {"domain": "...", "confidence": 0.0-1.0, "reasoning": "..."}
domain MUST be one of: %s.`, list, b.sopSection(), text, list)
}

// GroupStep builds the second pipeline prompt, resolving the category group
// given the already-chosen domain.
func (b *PromptBuilder) GroupStep(text, domain string) string {
	return fmt.Sprintf(`You classify messages into ONE PARA type. Message: %q. Domain (already chosen): %s.%s

PARA Types: %s.

Respond with ONLY this JSON: {"para_type": "...", "confidence": 0.0-1.0, "reasoning": "..."}
para_type MUST be one of: %s.`, text, domain, b.sopSection(), groupList(), groupList())
}

// SubcategoryStep builds the third pipeline prompt, resolving subcategory
// and category label given domain and group. subjects is the subcategory
// vocabulary for the chosen domain.
func (b *PromptBuilder) SubcategoryStep(text, domain string, group models.CategoryGroup, subjects []string) string {
	subjectList := "general"
	if len(subjects) > 0 {
		subjectList = strings.Join(subjects, ", ")
	}
	return fmt.Sprintf(`You classify message into subject and category. Message: %q. Domain: %s. PARA: %s.%s

Subjects for this domain: %s. Use one of these or "general".
Categories: %s.

Respond with ONLY this JSON: {"subject": "...", "category": "...", "confidence": 0.0-1.0, "reasoning": "..."}`,
		text, domain, group, b.sopSection(), subjectList, labelList())
}
