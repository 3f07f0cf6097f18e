package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/parabrain-dev/parabrain/internal/vault"
	"github.com/parabrain-dev/parabrain/pkg/models"
)

type classifierMock struct {
	classifyFn func(ctx context.Context, text string) (*models.ClassificationResult, error)
}

func (m *classifierMock) Classify(ctx context.Context, text string) (*models.ClassificationResult, error) {
	return m.classifyFn(ctx, text)
}

type writerMock struct {
	createFn func(result *models.ClassificationResult, text string, task *models.TaskInfo, now time.Time) (string, error)
}

func (m *writerMock) CreateNote(result *models.ClassificationResult, text string, task *models.TaskInfo, now time.Time) (string, error) {
	return m.createFn(result, text, task, now)
}

func (m *writerMock) AppendAttachments(notePath string, links []vault.AttachmentLink) error {
	return nil
}

func (m *writerMock) UpdateStatus(notePath string, status models.TaskStatus) error {
	return nil
}

func (m *writerMock) MoveNote(notePath, newDomain string, now time.Time) (string, error) {
	return notePath, nil
}

func TestClassifyCmd_NilClassifier(t *testing.T) {
	orig := Classifier
	defer func() { Classifier = orig }()
	Classifier = nil

	err := classifyCmd.RunE(classifyCmd, []string{"some text"})
	if err == nil {
		t.Fatal("expected error when Classifier is nil")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClassifyCmd_JoinsArgs(t *testing.T) {
	orig := Classifier
	defer func() { Classifier = orig }()

	var gotText string
	Classifier = &classifierMock{
		classifyFn: func(ctx context.Context, text string) (*models.ClassificationResult, error) {
			gotText = text
			return &models.ClassificationResult{
				Domain:        "Work",
				CategoryGroup: "1_Projects",
				Subcategory:   "website",
				CategoryLabel: "task",
				Confidence:    0.9,
			}, nil
		},
	}

	err := classifyCmd.RunE(classifyCmd, []string{"fix", "the", "landing", "page"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotText != "fix the landing page" {
		t.Errorf("classified text = %q, want args joined with spaces", gotText)
	}
}

func TestClassifyCmd_ClassifierError(t *testing.T) {
	orig := Classifier
	defer func() { Classifier = orig }()

	Classifier = &classifierMock{
		classifyFn: func(ctx context.Context, text string) (*models.ClassificationResult, error) {
			return nil, fmt.Errorf("model server unavailable")
		},
	}

	err := classifyCmd.RunE(classifyCmd, []string{"some text"})
	if err == nil {
		t.Fatal("expected error from Classify")
	}
	if !strings.Contains(err.Error(), "classifying text") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClassifyCmd_FileWritesNote(t *testing.T) {
	origClassifier := Classifier
	origWriter := Writer
	origFile := classifyFile
	defer func() {
		Classifier = origClassifier
		Writer = origWriter
		classifyFile = origFile
	}()

	result := &models.ClassificationResult{
		Domain:        "Personal",
		CategoryGroup: "2_Areas",
		Subcategory:   "health",
		CategoryLabel: "note",
		Confidence:    0.8,
	}
	Classifier = &classifierMock{
		classifyFn: func(ctx context.Context, text string) (*models.ClassificationResult, error) {
			return result, nil
		},
	}

	var gotResult *models.ClassificationResult
	var gotText string
	Writer = &writerMock{
		createFn: func(r *models.ClassificationResult, text string, task *models.TaskInfo, now time.Time) (string, error) {
			gotResult = r
			gotText = text
			return "/vault/Personal/2_Areas/health/note.md", nil
		},
	}
	classifyFile = true

	err := classifyCmd.RunE(classifyCmd, []string{"drink", "more", "water"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotResult != result {
		t.Error("writer did not receive the classification result")
	}
	if gotText != "drink more water" {
		t.Errorf("writer text = %q, want the captured text", gotText)
	}
}

func TestClassifyCmd_FileWithoutWriter(t *testing.T) {
	origClassifier := Classifier
	origWriter := Writer
	origFile := classifyFile
	defer func() {
		Classifier = origClassifier
		Writer = origWriter
		classifyFile = origFile
	}()

	Classifier = &classifierMock{
		classifyFn: func(ctx context.Context, text string) (*models.ClassificationResult, error) {
			return &models.ClassificationResult{Domain: "Work"}, nil
		},
	}
	Writer = nil
	classifyFile = true

	err := classifyCmd.RunE(classifyCmd, []string{"some text"})
	if err == nil {
		t.Fatal("expected error when writer is not initialized")
	}
	if !strings.Contains(err.Error(), "note writer not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}
