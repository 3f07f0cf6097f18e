package models

// TaskPriority represents the urgency level parsed from a task capture.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// TaskStatus represents the lifecycle state of a task note.
type TaskStatus string

const (
	StatusBacklog    TaskStatus = "backlog"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusDone       TaskStatus = "done"
)

// TaskIndicators holds the indicators parsed from a message with a task
// prefix (todo: or kanban:). CleanText is the message with all indicators
// stripped, suitable for classification.
type TaskIndicators struct {
	IsTask    bool
	View      string // "todo" or "kanban" when IsTask
	Domain    string // normalized domain indicator, empty if absent
	Project   string
	Priority  TaskPriority
	CleanText string
}

// TaskInfo is the task block written into a note's frontmatter when the
// capture carried task indicators.
type TaskInfo struct {
	Type     string       `yaml:"type"`
	Status   TaskStatus   `yaml:"status"`
	Board    string       `yaml:"board"`
	Priority TaskPriority `yaml:"priority"`
	Project  string       `yaml:"project,omitempty"`
	View     string       `yaml:"view,omitempty"`
}
