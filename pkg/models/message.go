package models

// ChatMessage is a single role-tagged message sent to the completion client.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// UserMessage builds a single-element user message slice, the common case
// for classification prompts.
func UserMessage(content string) []ChatMessage {
	return []ChatMessage{{Role: "user", Content: content}}
}

// Attachment describes a file attached to a captured message.
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url_private,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimetype,omitempty"`
}

// CapturedMessage is a message fetched from the capture channel, identified
// by its channel timestamp.
type CapturedMessage struct {
	TS          string       `json:"ts"`
	Text        string       `json:"text"`
	User        string       `json:"user,omitempty"`
	ThreadTS    string       `json:"thread_ts,omitempty"`
	Attachments []Attachment `json:"files,omitempty"`
}
