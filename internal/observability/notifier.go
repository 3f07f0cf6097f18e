package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier delivers triggered alerts to an external channel.
type Notifier interface {
	Notify(alerts []Alert) error
}

// Block Kit fragments for the webhook payload.
type webhookPayload struct {
	Blocks []block `json:"blocks"`
}

type block struct {
	Type string   `json:"type"`
	Text *textObj `json:"text,omitempty"`
}

type textObj struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier posting alert summaries to a Slack
// incoming webhook.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

var severityEmoji = map[AlertSeverity]string{
	SeverityHigh:   "\U0001f534",
	SeverityMedium: "\U0001f7e1",
	SeverityLow:    "\U0001f535",
}

// Notify posts the alerts as a single Block Kit message. An empty slice is
// a no-op so callers can pass Evaluate output straight through.
func (s *slackNotifier) Notify(alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	blocks := make([]block, 0, 2*len(alerts))
	blocks = append(blocks, block{
		Type: "header",
		Text: &textObj{Type: "plain_text", Text: "parabrain Alert Summary"},
	})
	for i, a := range alerts {
		if i > 0 {
			blocks = append(blocks, block{Type: "divider"})
		}
		blocks = append(blocks, block{Type: "section", Text: &textObj{Type: "mrkdwn", Text: renderAlert(a)}})
	}

	body, err := json.Marshal(webhookPayload{Blocks: blocks})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func renderAlert(a Alert) string {
	emoji, ok := severityEmoji[a.Severity]
	if !ok {
		emoji = "❓"
	}
	return fmt.Sprintf("%s *[%s]* %s\n_%s_",
		emoji,
		strings.ToUpper(string(a.Severity)),
		a.Message,
		a.TriggeredAt.Format("2006-01-02 15:04 UTC"))
}
