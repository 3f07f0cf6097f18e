package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/parabrain-dev/parabrain/internal/llm"
	"github.com/parabrain-dev/parabrain/internal/vault"
	"github.com/parabrain-dev/parabrain/pkg/models"
)

// Classifier classifies captured text into the vault taxonomy. Model-output
// unreliability is always absorbed into defaults; the only errors returned
// are the completion client's typed infrastructure errors (and vault scan
// failures), which callers handle with their own retry or dead-letter
// policy.
type Classifier interface {
	Classify(ctx context.Context, text string) (*models.ClassificationResult, error)
}

// StepModels carries optional per-step model overrides for pipeline mode.
// Empty fields use the client's default model.
type StepModels struct {
	Domain string
	Group  string
	Full   string
}

// New creates a Classifier using the strategy selected by mode. Both
// strategies share the same collaborators; the choice is made once at
// construction, not per call.
func New(client llm.CompletionClient, scanner vault.Scanner, prompts *PromptBuilder, mode models.ClassificationMode, stepModels StepModels) Classifier {
	if prompts == nil {
		prompts = NewPromptBuilder("")
	}
	base := classifierDeps{client: client, scanner: scanner, prompts: prompts}
	if mode == models.ModePipeline {
		return &pipelineClassifier{classifierDeps: base, models: stepModels}
	}
	return &singleShotClassifier{classifierDeps: base}
}

type classifierDeps struct {
	client  llm.CompletionClient
	scanner vault.Scanner
	prompts *PromptBuilder
}

// vocabulary loads structure and derived vocabulary without a second
// filesystem walk.
func (d *classifierDeps) vocabulary() (models.Structure, models.Vocabulary, error) {
	structure, err := d.scanner.GetStructure(false)
	if err != nil {
		return nil, models.Vocabulary{}, fmt.Errorf("loading vault structure: %w", err)
	}
	return structure, structure.Flatten(), nil
}

// singleShotClassifier resolves all four axes in one completion call.
type singleShotClassifier struct {
	classifierDeps
}

func (c *singleShotClassifier) Classify(ctx context.Context, text string) (*models.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return models.UnknownClassification(), nil
	}

	structure, vocab, err := c.vocabulary()
	if err != nil {
		return nil, err
	}

	prompt := c.prompts.SingleShot(text, vocab, structure)
	raw, err := c.client.Chat(ctx, models.UserMessage(prompt), "")
	if err != nil {
		return nil, err
	}

	fields, _ := Parse(raw)

	domain := NormalizeDomain(fields.Domain, vocab.Domains)
	group := NormalizeCategoryGroup(fields.CategoryGroup)

	return &models.ClassificationResult{
		Domain:        domain,
		CategoryGroup: group,
		Subcategory:   NormalizeSubcategory(fields.Subcategory, structure, domain, group),
		CategoryLabel: NormalizeCategoryLabel(fields.CategoryLabel),
		Confidence:    NormalizeConfidence(fields.Confidence),
		Reasoning:     NormalizeReasoning(fields.Reasoning),
		RawResponse:   raw,
	}, nil
}

// pipelineClassifier resolves domain, then category group, then
// subcategory+label in three dependent completion calls. The calls are
// sequential because each later prompt embeds the earlier steps' resolved
// values.
type pipelineClassifier struct {
	classifierDeps
	models StepModels
}

func (c *pipelineClassifier) Classify(ctx context.Context, text string) (*models.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return models.UnknownClassification(), nil
	}

	structure, vocab, err := c.vocabulary()
	if err != nil {
		return nil, err
	}

	// Step 1: domain.
	raw1, err := c.client.Chat(ctx, models.UserMessage(c.prompts.DomainStep(text, vocab.Domains)), c.models.Domain)
	if err != nil {
		return nil, err
	}
	domain, conf1, reason1 := c.parseDomainStep(raw1, vocab.Domains)

	// Step 2: category group, given domain.
	raw2, err := c.client.Chat(ctx, models.UserMessage(c.prompts.GroupStep(text, domain)), c.models.Group)
	if err != nil {
		return nil, err
	}
	group, conf2, reason2 := c.parseGroupStep(raw2)

	// Step 3: subcategory and label, given domain and group.
	subjects := structure.SubcategoriesFor(domain)
	raw3, err := c.client.Chat(ctx, models.UserMessage(c.prompts.SubcategoryStep(text, domain, group, subjects)), c.models.Full)
	if err != nil {
		return nil, err
	}
	sub, label, conf3, reason3 := c.parseSubcategoryStep(raw3, structure, domain, group)

	// The pipeline is no more certain than its least certain step.
	confidence := conf1
	if conf2 < confidence {
		confidence = conf2
	}
	if conf3 < confidence {
		confidence = conf3
	}

	return &models.ClassificationResult{
		Domain:        domain,
		CategoryGroup: group,
		Subcategory:   sub,
		CategoryLabel: label,
		Confidence:    confidence,
		Reasoning:     fmt.Sprintf("Pipeline: domain=%s; para=%s; subject+cat=%s", reason1, reason2, reason3),
		RawResponse:   fmt.Sprintf("domain: %s\npara: %s\nsubject_category: %s", raw1, raw2, raw3),
	}, nil
}

// stepFallbackReason marks a step whose response could not be parsed at all.
const stepFallbackReason = "fallback default"

func (c *pipelineClassifier) parseDomainStep(raw string, validDomains []string) (string, float64, string) {
	fields, ok := Parse(raw)
	if !ok {
		return models.DefaultDomain, models.DefaultConfidence, stepFallbackReason
	}
	return NormalizeDomain(fields.Domain, validDomains),
		NormalizeConfidence(fields.Confidence),
		NormalizeReasoning(fields.Reasoning)
}

func (c *pipelineClassifier) parseGroupStep(raw string) (models.CategoryGroup, float64, string) {
	fields, ok := Parse(raw)
	if !ok {
		return models.DefaultCategoryGroup, models.DefaultConfidence, stepFallbackReason
	}
	return NormalizeCategoryGroup(fields.CategoryGroup),
		NormalizeConfidence(fields.Confidence),
		NormalizeReasoning(fields.Reasoning)
}

func (c *pipelineClassifier) parseSubcategoryStep(raw string, structure models.Structure, domain string, group models.CategoryGroup) (string, models.CategoryLabel, float64, string) {
	fields, ok := Parse(raw)
	if !ok {
		return models.DefaultSubcategory, models.DefaultCategoryLabel, models.DefaultConfidence, stepFallbackReason
	}
	return NormalizeSubcategory(fields.Subcategory, structure, domain, group),
		NormalizeCategoryLabel(fields.CategoryLabel),
		NormalizeConfidence(fields.Confidence),
		NormalizeReasoning(fields.Reasoning)
}
