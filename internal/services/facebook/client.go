// Package facebook uploads videos to a Page through the Graph API.
package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"relay/internal/services"
)

// DefaultGraphBase is the versioned Graph API host.
const DefaultGraphBase = "https://graph.facebook.com/v18.0"

// Video is a Page video upload.
type Video struct {
	Path        string
	Title       string
	Description string
}

// Post identifies the created video.
type Post struct {
	ID string `json:"id"`
}

// URL returns the public link for the post.
func (p Post) URL() string {
	return PostURL(p.ID)
}

// PostURL builds the canonical link for a Graph object id.
func PostURL(id string) string {
	if strings.TrimSpace(id) == "" {
		return ""
	}
	return "https://www.facebook.com/" + id
}

// APIError is a Graph API error payload.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	Message    string `json:"message"`
	Type       string `json:"type"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api: %s (code %d/%d, http %d)", e.Message, e.Code, e.Subcode, e.StatusCode)
}

// TooLarge reports whether the Graph API refused the file size.
func (e *APIError) TooLarge() bool {
	if e.StatusCode == http.StatusRequestEntityTooLarge {
		return true
	}
	switch e.Code {
	case 351, 6000:
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "file size")
}

// IsTooLarge reports whether err carries a size rejection.
func IsTooLarge(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.TooLarge()
}

// Client posts to one Page.
type Client struct {
	base   string
	pageID string
	token  string
}

// New builds a Page client. An empty base uses DefaultGraphBase.
func New(base, pageID, token string) *Client {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultGraphBase
	}
	return &Client{base: base, pageID: strings.TrimSpace(pageID), token: strings.TrimSpace(token)}
}

// UploadVideo performs a single-request (non-resumable) upload.
func (c *Client) UploadVideo(ctx context.Context, hc services.HTTPDoer, v Video) (Post, error) {
	if c.pageID == "" || c.token == "" {
		return Post{}, errors.New("facebook: page id and token required")
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	fields := []services.FormField{{Name: "access_token", Value: c.token}}
	if v.Title != "" {
		fields = append(fields, services.FormField{Name: "title", Value: v.Title})
	}
	if v.Description != "" {
		fields = append(fields, services.FormField{Name: "description", Value: v.Description})
	}
	body, contentType, err := services.MultipartFile(fields, "source", v.Path)
	if err != nil {
		return Post{}, err
	}
	defer body.Close()

	endpoint := fmt.Sprintf("%s/%s/videos", c.base, c.pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return Post{}, fmt.Errorf("build video upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := hc.Do(req)
	if err != nil {
		return Post{}, fmt.Errorf("facebook upload: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Post{}, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var payload struct {
			Error APIError `json:"error"`
		}
		_ = json.Unmarshal(data, &payload)
		apiErr := payload.Error
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return Post{}, &apiErr
	}

	var post Post
	if err := json.Unmarshal(data, &post); err != nil {
		return Post{}, fmt.Errorf("decode upload response: %w", err)
	}
	if post.ID == "" {
		return Post{}, errors.New("facebook upload: response missing id")
	}
	return post, nil
}
