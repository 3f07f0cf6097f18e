package models

// NoteFrontmatter is the YAML frontmatter written at the top of every
// captured note.
type NoteFrontmatter struct {
	Domain        string        `yaml:"domain"`
	CategoryGroup CategoryGroup `yaml:"para_type"`
	Subcategory   string        `yaml:"subject"`
	CategoryLabel CategoryLabel `yaml:"category"`
	Confidence    float64       `yaml:"confidence"`
	Reasoning     string        `yaml:"reasoning"`
	Created       string        `yaml:"created"`
	Tags          []string      `yaml:"tags"`
	Task          *TaskInfo     `yaml:"task,omitempty"`
	Status        TaskStatus    `yaml:"status,omitempty"`
}
