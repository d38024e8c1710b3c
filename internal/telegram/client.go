// Package telegram is a minimal Bot API client for pushing proctor alerts.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// ParseModeHTML formats message text as Telegram HTML.
const ParseModeHTML = "HTML"

type Client struct {
	token      string
	httpClient *http.Client
	apiBase    string
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIBase points the client at another Bot API host, e.g. a local bot API server.
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiBase:    defaultAPIBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal (status %d): %w", resp.StatusCode, err)
	}

	if !apiResp.OK {
		return nil, &APIError{Code: apiResp.ErrorCode, Description: apiResp.Description}
	}

	return apiResp.Result, nil
}

// SendMessage posts text to a chat and returns the new message ID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) (int64, error) {
	req := SendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             parseMode,
		DisableWebPagePreview: true,
	}

	result, err := c.call(ctx, "sendMessage", req)
	if err != nil {
		return 0, err
	}

	var msg MessageResult
	if err := json.Unmarshal(result, &msg); err != nil {
		return 0, fmt.Errorf("decode message: %w", err)
	}
	return msg.MessageID, nil
}

// GetMe returns the bot's username; used as a startup credential check.
func (c *Client) GetMe(ctx context.Context) (string, error) {
	result, err := c.call(ctx, "getMe", struct{}{})
	if err != nil {
		return "", err
	}
	var u User
	if err := json.Unmarshal(result, &u); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	return u.Username, nil
}
