package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	maxRetries       = 3
	initialBackoff   = time.Second
	maxResponseBytes = 1 << 20 // 1 MiB cap on API response reads.
)

// Client is a thin HTTP wrapper around the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Telegram Bot API client.
func NewClient(token, baseURL string) *Client {
	return &Client{
		token:   token,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// do sends a JSON POST request to the given Bot API method and decodes the response.
// It handles 429 rate limiting with Retry-After (max 3 retries, exponential backoff).
func do[T any](ctx context.Context, c *Client, method string, payload any) (*T, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	backoff := initialBackoff

	for attempt := range maxRetries {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			// Wrap so error messages name the method, not the token-bearing
			// URL. The original error is still available via Unwrap.
			return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
		}

		// Handle rate limiting with retry.
		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries-1 {
			var apiResp APIResponse[json.RawMessage]
			if err := json.Unmarshal(respBody, &apiResp); err == nil && apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
				backoff = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
			}

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2

			// Re-create body reader for retry.
			if payload != nil {
				data, _ := json.Marshal(payload)
				body = bytes.NewReader(data)
			}
			continue
		}

		var apiResp APIResponse[T]
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
		}

		if !apiResp.OK {
			apiErr := &APIError{
				Code:        apiResp.ErrorCode,
				Description: apiResp.Description,
			}
			if apiResp.Parameters != nil {
				apiErr.RetryAfter = apiResp.Parameters.RetryAfter
			}
			return nil, apiErr
		}

		return &apiResp.Result, nil
	}

	// Unreachable under normal flow, but satisfy the compiler.
	return nil, fmt.Errorf("telegram: %s: max retries exceeded", method)
}

// GetUpdatesRequest is the request body for the getUpdates method.
type GetUpdatesRequest struct {
	Offset         int      `json:"offset,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// SetWebhookRequest is the request body for the setWebhook method.
type SetWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
	MaxConnections int      `json:"max_connections,omitempty"`
}

// SendMessageRequest is the request body for the sendMessage method.
type SendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID      int    `json:"reply_to_message_id,omitempty"`
}

// GetMe returns the bot's user information.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	return do[User](ctx, c, "getMe", nil)
}

// GetUpdates fetches incoming updates using long polling.
func (c *Client) GetUpdates(ctx context.Context, req GetUpdatesRequest) ([]Update, error) {
	result, err := do[[]Update](ctx, c, "getUpdates", req)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// SetWebhook configures the webhook URL for receiving updates.
func (c *Client) SetWebhook(ctx context.Context, req SetWebhookRequest) error {
	_, err := do[bool](ctx, c, "setWebhook", req)
	return err
}

// DeleteWebhook removes the current webhook integration.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := do[bool](ctx, c, "deleteWebhook", nil)
	return err
}

// SendMessage sends a text message to the specified chat.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	return do[Message](ctx, c, "sendMessage", req)
}
