package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultAPIURL = "https://api.telegram.org"

// Client provides the minimal Telegram Bot API surface the backend uses.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
}

func NewClient(apiURL, token string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     strings.TrimRight(apiURL, "/"),
		token:      token,
	}
}

type tgResponse[T any] struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	Result      T      `json:"result"`
}

type message struct {
	MessageID int64 `json:"message_id"`
}

// SendMessage posts text to chatID ("@channel" or a numeric id).
func (c *Client) SendMessage(ctx context.Context, chatID, text, parseMode string, disablePreview bool) error {
	params := url.Values{
		"chat_id":                  {chatID},
		"text":                     {text},
		"disable_web_page_preview": {fmt.Sprintf("%t", disablePreview)},
	}
	if parseMode != "" {
		params.Set("parse_mode", parseMode)
	}

	var result tgResponse[message]
	if err := c.makeRequest(ctx, http.MethodPost, c.endpoint("sendMessage"), params, &result); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	if !result.Ok {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, data url.Values, out any) error {
	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(data.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if len(data) > 0 {
			endpoint = endpoint + "?" + data.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return err
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("telegram returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
