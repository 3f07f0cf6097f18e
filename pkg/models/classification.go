package models

// CategoryGroup represents one of the four fixed PARA buckets a note can be
// filed under. The set is fixed; it is not discovered from the vault.
type CategoryGroup string

const (
	GroupProjects  CategoryGroup = "1_Projects"
	GroupAreas     CategoryGroup = "2_Areas"
	GroupResources CategoryGroup = "3_Resources"
	GroupArchive   CategoryGroup = "4_Archive"
)

// CategoryGroups returns the fixed category groups in canonical order.
func CategoryGroups() []CategoryGroup {
	return []CategoryGroup{GroupProjects, GroupAreas, GroupResources, GroupArchive}
}

// CategoryLabel describes the nature of a captured message.
type CategoryLabel string

const (
	LabelMeeting   CategoryLabel = "meeting"
	LabelTask      CategoryLabel = "task"
	LabelIdea      CategoryLabel = "idea"
	LabelReference CategoryLabel = "reference"
	LabelJournal   CategoryLabel = "journal"
	LabelQuestion  CategoryLabel = "question"
)

// CategoryLabels returns the fixed category labels in canonical order.
func CategoryLabels() []CategoryLabel {
	return []CategoryLabel{LabelMeeting, LabelTask, LabelIdea, LabelReference, LabelJournal, LabelQuestion}
}

// Defaults substituted whenever a field cannot be resolved against the
// vocabulary. Every classification path terminates with a fully populated
// result, so these are never absent.
const (
	DefaultDomain        = "Personal"
	DefaultSubcategory   = "general"
	DefaultConfidence    = 0.5
	DefaultCategoryGroup = GroupResources
	DefaultCategoryLabel = LabelReference
)

// UnknownValue marks fields of the sentinel result returned for empty input.
const UnknownValue = "unknown"

// ClassificationResult is the outcome of classifying a single message.
// It is immutable once produced; all fields are guaranteed to be members of
// their valid sets except on the empty-input path, where string fields hold
// UnknownValue and confidence is 0.
type ClassificationResult struct {
	Domain        string
	CategoryGroup CategoryGroup
	Subcategory   string
	CategoryLabel CategoryLabel
	Confidence    float64
	Reasoning     string

	// RawResponse retains the unmodified model output for debugging.
	// Empty when no model call was made.
	RawResponse string
}

// UnknownClassification returns the sentinel result for empty or
// whitespace-only input. This is a distinct terminal path; it does not go
// through field normalization.
func UnknownClassification() *ClassificationResult {
	return &ClassificationResult{
		Domain:        UnknownValue,
		CategoryGroup: CategoryGroup(UnknownValue),
		Subcategory:   UnknownValue,
		CategoryLabel: CategoryLabel(UnknownValue),
		Confidence:    0.0,
		Reasoning:     "empty message",
	}
}

// VaultPath returns the relative vault folder a result files into,
// in domain/group/subcategory form.
func (r *ClassificationResult) VaultPath() string {
	return r.Domain + "/" + string(r.CategoryGroup) + "/" + r.Subcategory
}
