// Package telegram is a minimal Bot API client for video uploads.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"relay/internal/services"
)

// DefaultAPIBase is the public Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// Video is a sendVideo request.
type Video struct {
	ChatID            string
	Caption           string
	Path              string
	DurationSeconds   int
	Width             int
	Height            int
	SupportsStreaming bool
}

// Message is the subset of the Bot API message object relay reads.
type Message struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"chat"`
}

// APIError is a non-ok Bot API response.
type APIError struct {
	StatusCode  int
	ErrorCode   int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api: %d %s", e.ErrorCode, e.Description)
}

// TooLarge reports whether Telegram rejected the payload size.
func (e *APIError) TooLarge() bool {
	if e.StatusCode == http.StatusRequestEntityTooLarge || e.ErrorCode == http.StatusRequestEntityTooLarge {
		return true
	}
	desc := strings.ToLower(e.Description)
	return strings.Contains(desc, "request entity too large") || strings.Contains(desc, "file is too big")
}

// IsTooLarge reports whether err carries a size rejection.
func IsTooLarge(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.TooLarge()
}

// Client talks to one bot.
type Client struct {
	base  string
	token string
}

// New returns a client for token. An empty base uses DefaultAPIBase.
func New(base, token string) *Client {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultAPIBase
	}
	return &Client{base: base, token: strings.TrimSpace(token)}
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// SendVideo uploads v as a streaming-capable video.
func (c *Client) SendVideo(ctx context.Context, hc services.HTTPDoer, v Video) (Message, error) {
	if c.token == "" {
		return Message{}, errors.New("telegram: bot token required")
	}
	if strings.TrimSpace(v.ChatID) == "" {
		return Message{}, errors.New("telegram: chat id required")
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	fields := []services.FormField{{Name: "chat_id", Value: v.ChatID}}
	if v.Caption != "" {
		fields = append(fields, services.FormField{Name: "caption", Value: v.Caption})
	}
	if v.SupportsStreaming {
		fields = append(fields, services.FormField{Name: "supports_streaming", Value: "true"})
	}
	if v.DurationSeconds > 0 {
		fields = append(fields, services.FormField{Name: "duration", Value: strconv.Itoa(v.DurationSeconds)})
	}
	if v.Width > 0 && v.Height > 0 {
		fields = append(fields,
			services.FormField{Name: "width", Value: strconv.Itoa(v.Width)},
			services.FormField{Name: "height", Value: strconv.Itoa(v.Height)},
		)
	}

	body, contentType, err := services.MultipartFile(fields, "video", v.Path)
	if err != nil {
		return Message{}, err
	}
	defer body.Close()

	endpoint := fmt.Sprintf("%s/bot%s/sendVideo", c.base, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return Message{}, fmt.Errorf("build sendVideo request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := hc.Do(req)
	if err != nil {
		// The URL embeds the token; never surface it.
		return Message{}, fmt.Errorf("telegram sendVideo: %w", redact(err, c.token))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Message{}, fmt.Errorf("read sendVideo response: %w", err)
	}
	var env envelope
	if jsonErr := json.Unmarshal(data, &env); jsonErr != nil || !env.OK {
		apiErr := &APIError{StatusCode: resp.StatusCode, ErrorCode: env.ErrorCode, Description: env.Description}
		if apiErr.ErrorCode == 0 {
			apiErr.ErrorCode = resp.StatusCode
		}
		if apiErr.Description == "" {
			apiErr.Description = strings.TrimSpace(http.StatusText(resp.StatusCode))
		}
		return Message{}, apiErr
	}

	var msg Message
	if err := json.Unmarshal(env.Result, &msg); err != nil {
		return Message{}, fmt.Errorf("decode sendVideo result: %w", err)
	}
	return msg, nil
}

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
