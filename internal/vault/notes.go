package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/parabrain-dev/parabrain/pkg/models"
	"gopkg.in/yaml.v3"
)

// NoteInfo summarizes one filed note for reporting.
type NoteInfo struct {
	Path        string
	Title       string
	Frontmatter models.NoteFrontmatter
}

var filenameTimestamp = regexp.MustCompile(`^\d{8}-\d{6}-`)

// ListNotes walks the vault and parses the frontmatter of every note.
// Hidden directories are skipped, as are files without valid frontmatter.
func ListNotes(vaultPath string) ([]NoteInfo, error) {
	var notes []NoteInfo
	err := filepath.WalkDir(vaultPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == vaultPath {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != vaultPath {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		fm, ok := readFrontmatter(path)
		if !ok {
			return nil
		}
		notes = append(notes, NoteInfo{
			Path:        path,
			Title:       noteTitle(d.Name()),
			Frontmatter: fm,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func readFrontmatter(path string) (models.NoteFrontmatter, bool) {
	var fm models.NoteFrontmatter
	data, err := os.ReadFile(path)
	if err != nil {
		return fm, false
	}
	content := string(data)
	if !strings.HasPrefix(content, "---") {
		return fm, false
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return fm, false
	}
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return fm, false
	}
	return fm, true
}

// noteTitle derives a readable title from a note filename: the timestamp
// prefix and extension are stripped and hyphens become spaces.
func noteTitle(filename string) string {
	title := strings.TrimSuffix(filename, ".md")
	title = filenameTimestamp.ReplaceAllString(title, "")
	return strings.ReplaceAll(title, "-", " ")
}
