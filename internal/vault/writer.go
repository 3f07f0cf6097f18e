package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/parabrain-dev/parabrain/pkg/models"
	"gopkg.in/yaml.v3"
)

// maxTitleLength bounds the sanitized title portion of note filenames.
const maxTitleLength = 30

// AttachmentLink pairs an attachment's display name with the filename it was
// saved under next to the note.
type AttachmentLink struct {
	DisplayName string
	FileName    string
}

// NoteWriter creates classified note files under the vault in
// domain/group/subcategory folders.
type NoteWriter interface {
	// CreateNote writes a note for the classified message and returns the
	// created file's path.
	CreateNote(result *models.ClassificationResult, text string, task *models.TaskInfo, now time.Time) (string, error)
	// AppendAttachments appends an attachments section with markdown links
	// to an existing note.
	AppendAttachments(notePath string, links []AttachmentLink) error
	// UpdateStatus rewrites the status field in a note's frontmatter.
	UpdateStatus(notePath string, status models.TaskStatus) error
	// MoveNote re-files a note under a different domain, keeping its group
	// and subcategory, and records the move in the frontmatter. It returns
	// the note's new path.
	MoveNote(notePath, newDomain string, now time.Time) (string, error)
}

type fileNoteWriter struct {
	vaultPath string
}

// NewNoteWriter creates a NoteWriter rooted at vaultPath.
func NewNoteWriter(vaultPath string) NoteWriter {
	return &fileNoteWriter{vaultPath: vaultPath}
}

func (w *fileNoteWriter) CreateNote(result *models.ClassificationResult, text string, task *models.TaskInfo, now time.Time) (string, error) {
	folder := filepath.Join(w.vaultPath, result.Domain, string(result.CategoryGroup), result.Subcategory)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("creating note folder: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.md", now.Format("20060102-150405"), SanitizeFilename(text))
	notePath := filepath.Join(folder, filename)

	fm := models.NoteFrontmatter{
		Domain:        result.Domain,
		CategoryGroup: result.CategoryGroup,
		Subcategory:   result.Subcategory,
		CategoryLabel: result.CategoryLabel,
		Confidence:    result.Confidence,
		Reasoning:     result.Reasoning,
		Created:       now.Format(time.RFC3339),
		Tags:          []string{},
	}
	if task != nil {
		fm.Task = task
		fm.Status = task.Status
	}

	fmData, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("marshalling frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fmData)
	b.WriteString("---\n\n")
	b.WriteString("## Original Capture\n\n")
	b.WriteString(text)
	b.WriteString("\n\n## Classification\n\n")
	fmt.Fprintf(&b, "- **Domain:** %s\n", result.Domain)
	fmt.Fprintf(&b, "- **PARA Type:** %s\n", result.CategoryGroup)
	fmt.Fprintf(&b, "- **Subject:** %s\n", result.Subcategory)
	fmt.Fprintf(&b, "- **Category:** %s\n", result.CategoryLabel)
	fmt.Fprintf(&b, "- **Confidence:** %.0f%%\n", result.Confidence*100)
	fmt.Fprintf(&b, "- **Reasoning:** %s\n", result.Reasoning)

	if err := os.WriteFile(notePath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing note: %w", err)
	}
	return notePath, nil
}

func (w *fileNoteWriter) AppendAttachments(notePath string, links []AttachmentLink) error {
	if len(links) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("\n## Attachments\n\n")
	for _, link := range links {
		fmt.Fprintf(&b, "- [%s](%s)\n", link.DisplayName, link.FileName)
	}

	f, err := os.OpenFile(notePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening note for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("appending attachments: %w", err)
	}
	return nil
}

var statusLinePattern = regexp.MustCompile(`(?m)^status:\s*.+$`)

// UpdateStatus rewrites the status field inside the note's YAML frontmatter,
// adding one if the frontmatter has none.
func (w *fileNoteWriter) UpdateStatus(notePath string, status models.TaskStatus) error {
	data, err := os.ReadFile(notePath)
	if err != nil {
		return fmt.Errorf("reading note: %w", err)
	}

	content := string(data)
	if !strings.HasPrefix(content, "---") {
		return fmt.Errorf("note has no frontmatter: %s", notePath)
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return fmt.Errorf("invalid frontmatter in note: %s", notePath)
	}

	frontmatter := parts[1]
	if statusLinePattern.MatchString(frontmatter) {
		frontmatter = statusLinePattern.ReplaceAllString(frontmatter, "status: "+string(status))
	} else {
		frontmatter = frontmatter + "status: " + string(status) + "\n"
	}

	updated := "---" + frontmatter + "---" + parts[2]
	if err := os.WriteFile(notePath, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing note: %w", err)
	}
	return nil
}

var (
	domainLinePattern    = regexp.MustCompile(`(?m)^domain:\s*.+$`)
	movedFromLinePattern = regexp.MustCompile(`(?m)^moved_from:\s*.+$`)
	movedAtLinePattern   = regexp.MustCompile(`(?m)^moved_at:\s*.+$`)
)

// MoveNote renames the note file into newDomain/<group>/<subcategory>/ and
// rewrites the frontmatter: domain is replaced, moved_from and moved_at
// record where the note came from and when. A name collision in the target
// folder gets a "-moved-<timestamp>" suffix.
func (w *fileNoteWriter) MoveNote(notePath, newDomain string, now time.Time) (string, error) {
	rel, err := filepath.Rel(w.vaultPath, notePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("note %s is outside the vault", notePath)
	}
	segments := strings.Split(rel, string(filepath.Separator))
	if len(segments) < 4 {
		return "", fmt.Errorf("note %s is not under a domain/group/subject folder", notePath)
	}
	oldDomain := segments[0]

	data, err := os.ReadFile(notePath)
	if err != nil {
		return "", fmt.Errorf("reading note: %w", err)
	}
	content := string(data)
	parts := strings.SplitN(content, "---", 3)
	if !strings.HasPrefix(content, "---") || len(parts) < 3 {
		return "", fmt.Errorf("note has no frontmatter: %s", notePath)
	}

	targetDir := filepath.Join(append([]string{w.vaultPath, newDomain}, segments[1:len(segments)-1]...)...)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("creating target folder: %w", err)
	}

	newPath := filepath.Join(targetDir, segments[len(segments)-1])
	if _, err := os.Stat(newPath); err == nil {
		stem := strings.TrimSuffix(segments[len(segments)-1], ".md")
		newPath = filepath.Join(targetDir, fmt.Sprintf("%s-moved-%s.md", stem, now.Format("20060102-150405")))
	}

	frontmatter := parts[1]
	frontmatter = domainLinePattern.ReplaceAllString(frontmatter, "domain: "+newDomain)
	frontmatter = movedFromLinePattern.ReplaceAllString(frontmatter, "")
	frontmatter = movedAtLinePattern.ReplaceAllString(frontmatter, "")
	frontmatter = strings.ReplaceAll(frontmatter, "\n\n", "\n")
	frontmatter += "moved_from: " + oldDomain + "\n"
	frontmatter += "moved_at: " + now.Format(time.RFC3339) + "\n"

	updated := "---" + frontmatter + "---" + parts[2]
	if err := os.WriteFile(newPath, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("writing moved note: %w", err)
	}
	if err := os.Remove(notePath); err != nil {
		return "", fmt.Errorf("removing old note: %w", err)
	}
	return newPath, nil
}

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// SanitizeFilename converts text to a safe kebab-case filename fragment,
// truncated to 30 characters. Empty or fully stripped input yields
// "untitled".
func SanitizeFilename(text string) string {
	result := strings.ToLower(strings.TrimSpace(text))
	result = invalidChars.ReplaceAllString(result, "")
	result = spaceRuns.ReplaceAllString(result, "-")
	result = hyphenRuns.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if result == "" {
		return "untitled"
	}
	if len(result) > maxTitleLength {
		result = strings.TrimRight(result[:maxTitleLength], "-")
	}
	return result
}

// SafeAttachmentName sanitizes an attachment filename, preserving the
// extension and suffixing a counter when the name collides with one already
// used in the note's folder.
func SafeAttachmentName(name string, existing map[string]bool) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	safe := SanitizeFilename(base)

	candidate := safe + ext
	for i := 2; existing[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d%s", safe, i, ext)
	}
	return candidate
}
