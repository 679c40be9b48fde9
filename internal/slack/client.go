package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/safakhou/helpbot/internal/helpers"
)

const maxAPIResponseBytes = 1 << 20

// Client is a bearer-token Slack Web API client covering the two calls the
// bot needs: chat.postMessage and chat.postEphemeral.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	log     *log.Logger
}

func NewClient(token, baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[SLACK] ", log.LstdFlags)
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

type postMessageRequest struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []Block `json:"blocks,omitempty"`
	User    string  `json:"user,omitempty"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PostMessage posts to a channel. text doubles as the notification fallback
// when blocks are provided.
func (c *Client) PostMessage(ctx context.Context, channel, text string, blocks []Block) error {
	return c.call(ctx, "chat.postMessage", postMessageRequest{Channel: channel, Text: text, Blocks: blocks})
}

// PostEphemeral posts a message visible only to user within channel.
func (c *Client) PostEphemeral(ctx context.Context, channel, user, text string) error {
	return c.call(ctx, "chat.postEphemeral", postMessageRequest{Channel: channel, Text: text, User: user})
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("slack: encoding %s payload: %w", method, err)
	}

	resp, err := c.do(ctx, method, body)
	if err != nil {
		// One retry on transport errors only; API-level failures are not
		// retried because Slack already received the call.
		c.log.Printf("%s transport error, retrying once: %v", method, err)
		resp, err = c.do(ctx, method, body)
	}
	if err != nil {
		return fmt.Errorf("slack: calling %s: %w", method, err)
	}

	raw, err := helpers.ReadAllAndClose(resp.Body, maxAPIResponseBytes)
	if err != nil {
		return fmt.Errorf("slack: reading %s response: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack: %s returned status %d", method, resp.StatusCode)
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		return fmt.Errorf("slack: decoding %s response: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("slack: %s failed: %s", method, api.Error)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.http.Do(req)
}
