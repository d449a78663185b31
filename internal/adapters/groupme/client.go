package groupme

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bibleman-bot/internal/infra/metrics"
)

const postURL = "https://api.groupme.com/v3/bots/post"

// Client mirrors announcements into a GroupMe group through the bot API.
type Client struct {
	http  *http.Client
	botID string
}

func NewClient(botID string) *Client {
	return &Client{
		http:  &http.Client{Timeout: 10 * time.Second},
		botID: botID,
	}
}

type postRequest struct {
	BotID string `json:"bot_id"`
	Text  string `json:"text"`
}

// Send posts one text message as the bot.
func (c *Client) Send(ctx context.Context, text string) error {
	if c.botID == "" {
		return fmt.Errorf("groupme: bot id is empty")
	}
	body, err := json.Marshal(postRequest{BotID: c.botID, Text: text})
	if err != nil {
		return fmt.Errorf("groupme: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("groupme: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("groupme", "bot_post", c.botID, start, err)
	if err != nil {
		return fmt.Errorf("groupme: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("groupme: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

// CallbackMessage is the payload GroupMe delivers to the callback URL when
// someone posts in the group.
type CallbackMessage struct {
	SenderType string `json:"sender_type"`
	Name       string `json:"name"`
	Text       string `json:"text"`
}

// ParseCallback decodes a callback body. Bot-authored messages are reported
// with ok=false so the bridge never echoes its own posts.
func ParseCallback(r io.Reader) (CallbackMessage, bool, error) {
	var msg CallbackMessage
	if err := json.NewDecoder(r).Decode(&msg); err != nil {
		return CallbackMessage{}, false, fmt.Errorf("groupme: decode callback: %w", err)
	}
	if msg.SenderType == "bot" || msg.Text == "" {
		return msg, false, nil
	}
	return msg, true, nil
}
