// Package integration holds clients for external services: the Slack
// capture channel.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parabrain-dev/parabrain/pkg/models"
)

// Retry configuration for Slack API calls.
const (
	maxRetries     = 3
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// APIError is a Slack API-level error (ok=false in the response body).
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return "slack API error: " + e.Code
}

// RateLimitError is returned when Slack rate limiting persists through all
// retries.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("slack rate limited, retry after %s", e.RetryAfter)
}

// ChannelClient is the capture-channel contract the inbox processor
// depends on.
type ChannelClient interface {
	// FetchMessages returns channel messages newer than the oldest
	// timestamp, newest first (Slack order).
	FetchMessages(ctx context.Context, oldest string, limit int) ([]models.CapturedMessage, error)
	// ReplyToMessage posts a threaded reply to the message with the given
	// timestamp.
	ReplyToMessage(ctx context.Context, ts, text string) error
	// SendDM sends a direct message to the configured user.
	SendDM(ctx context.Context, text string) error
	// DownloadFile fetches an attachment to destPath.
	DownloadFile(ctx context.Context, att models.Attachment, destPath string) error
}

type slackClient struct {
	token     string
	channelID string
	userID    string
	baseURL   string
	client    *http.Client

	// sleep is injected for retry tests.
	sleep func(time.Duration)
}

// NewSlackClient creates a ChannelClient for the configured workspace.
func NewSlackClient(cfg models.SlackConfig) ChannelClient {
	return &slackClient{
		token:     cfg.BotToken,
		channelID: cfg.ChannelID,
		userID:    cfg.UserID,
		baseURL:   "https://slack.com",
		client:    &http.Client{Timeout: 30 * time.Second},
		sleep:     time.Sleep,
	}
}

type apiResponse struct {
	OK       bool                     `json:"ok"`
	Error    string                   `json:"error,omitempty"`
	Messages []models.CapturedMessage `json:"messages,omitempty"`
}

// doWithRetry performs a Slack API request with exponential backoff.
// Network errors, 429 rate limits (honoring Retry-After), and 5xx responses
// are retried; API-level errors are not.
func (c *slackClient) doWithRetry(ctx context.Context, method, apiPath string, params url.Values, body []byte) (*apiResponse, error) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := c.newRequest(ctx, method, apiPath, params, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				c.sleep(backoff)
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return nil, fmt.Errorf("slack request failed: %w", err)
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := backoff
			if v := resp.Header.Get("Retry-After"); v != "" {
				if secs, err := strconv.Atoi(v); err == nil {
					retryAfter = time.Duration(secs) * time.Second
				}
			}
			if attempt < maxRetries {
				c.sleep(retryAfter)
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return nil, &RateLimitError{RetryAfter: retryAfter}
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("slack returned status %d", resp.StatusCode)
			if attempt < maxRetries {
				c.sleep(backoff)
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return nil, lastErr
		}

		if readErr != nil {
			return nil, fmt.Errorf("reading slack response: %w", readErr)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("slack returned status %d", resp.StatusCode)
		}

		var parsed apiResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("decoding slack response: %w", err)
		}
		if !parsed.OK {
			code := parsed.Error
			if code == "" {
				code = "unknown_error"
			}
			return nil, &APIError{Code: code}
		}
		return &parsed, nil
	}

	return nil, lastErr
}

func (c *slackClient) newRequest(ctx context.Context, method, apiPath string, params url.Values, body []byte) (*http.Request, error) {
	endpoint := c.baseURL + apiPath
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	return req, nil
}

func (c *slackClient) FetchMessages(ctx context.Context, oldest string, limit int) ([]models.CapturedMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{
		"channel": {c.channelID},
		"oldest":  {oldest},
		"limit":   {strconv.Itoa(limit)},
	}
	resp, err := c.doWithRetry(ctx, http.MethodGet, "/api/conversations.history", params, nil)
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *slackClient) postMessage(ctx context.Context, channel, threadTS, text string) error {
	payload := map[string]string{
		"channel": channel,
		"text":    text,
	}
	if threadTS != "" {
		payload["thread_ts"] = threadTS
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling slack message: %w", err)
	}
	_, err = c.doWithRetry(ctx, http.MethodPost, "/api/chat.postMessage", nil, body)
	return err
}

func (c *slackClient) ReplyToMessage(ctx context.Context, ts, text string) error {
	return c.postMessage(ctx, c.channelID, ts, text)
}

func (c *slackClient) SendDM(ctx context.Context, text string) error {
	if c.userID == "" {
		return fmt.Errorf("slack user ID not configured")
	}
	return c.postMessage(ctx, c.userID, "", text)
}

// DownloadFile fetches a private attachment URL with the bot token and
// writes it to destPath.
func (c *slackClient) DownloadFile(ctx context.Context, att models.Attachment, destPath string) error {
	if att.URL == "" {
		return fmt.Errorf("attachment %s has no download URL", att.Name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", att.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: status %d", att.Name, resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating attachment file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("writing attachment: %w", err)
	}
	return nil
}
