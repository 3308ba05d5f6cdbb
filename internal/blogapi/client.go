// Package blogapi is the HTTP client for a remote blog backend.
package blogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"postdesk/internal/domain"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("blog api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("blog api: status %d: %s", e.StatusCode, e.Message)
}

// Is lets callers match status classes with errors.Is against the domain
// sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case domain.ErrPostNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	// TokenSource, when set, is asked for the token on every request so a
	// token changed at runtime takes effect immediately.
	TokenSource func() string
	AuthorID    domain.ID
	Timeout     time.Duration
	// HTTPClient overrides the default client; its Timeout is left alone.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the REST routes under BaseURL.
type Client struct {
	base     *url.URL
	token    func() string
	authorID domain.ID
	http     *http.Client
	log      *zap.Logger
}

// New validates the base URL and builds a Client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("blog api: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("blog api: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("blog api: unsupported scheme %q", base.Scheme)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	token := opts.TokenSource
	if token == nil {
		static := opts.Token
		token = func() string { return static }
	}
	return &Client{
		base:     base,
		token:    token,
		authorID: opts.AuthorID,
		http:     hc,
		log:      log.Named("blogapi"),
	}, nil
}

func (c *Client) GetPost(ctx context.Context, id domain.ID) (*domain.Post, error) {
	var p domain.Post
	if err := c.do(ctx, http.MethodGet, postPath(id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePost creates a post. The backend answers with either the stored
// post or only its id; in the latter case the input is echoed back.
func (c *Client) CreatePost(ctx context.Context, in domain.PostInput) (*domain.Post, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/posts", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeCreated(raw, in)
}

func (c *Client) UpdatePost(ctx context.Context, id domain.ID, in domain.PostInput) (*domain.Post, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, postPath(id), nil, in, &raw); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &domain.Post{ID: id, Body: in.Body, Title: in.Title}, nil
	}
	var p domain.Post
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("blog api: decode post: %w", err)
	}
	return &p, nil
}

func (c *Client) PublishPost(ctx context.Context, id domain.ID) error {
	return c.do(ctx, http.MethodPost, postPath(id)+"/publish", nil, nil, nil)
}

func (c *Client) DraftPost(ctx context.Context, id domain.ID) error {
	return c.do(ctx, http.MethodPost, postPath(id)+"/draft", nil, nil, nil)
}

// ListPosts lists the posts of the configured author.
func (c *Client) ListPosts(ctx context.Context) ([]domain.Post, error) {
	q := url.Values{}
	if c.authorID != "" {
		q.Set("author", c.authorID.String())
	}
	var posts []domain.Post
	if err := c.do(ctx, http.MethodGet, "/posts", q, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func postPath(id domain.ID) string {
	return "/posts/" + url.PathEscape(id.String())
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("blog api: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("blog api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("blog api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("blog api: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(payload)}
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], payload...)
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("blog api: decode response: %w", err)
	}
	return nil
}

// decodeCreated accepts `{...post}`, `"id"` or `42`.
func decodeCreated(raw json.RawMessage, in domain.PostInput) (*domain.Post, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("blog api: empty create response")
	}
	if raw[0] == '{' {
		var p domain.Post
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("blog api: decode post: %w", err)
		}
		if p.ID == "" {
			return nil, errors.New("blog api: created post has no id")
		}
		return &p, nil
	}
	var id domain.ID
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("blog api: decode post id: %w", err)
	}
	if id == "" {
		return nil, errors.New("blog api: created post has no id")
	}
	return &domain.Post{ID: id, Body: in.Body, Title: in.Title}, nil
}

const maxErrorRunes = 200

// errorMessage pulls a message out of common error bodies.
func errorMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(payload, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(payload))
	if utf8.RuneCountInString(msg) > maxErrorRunes {
		msg = string([]rune(msg)[:maxErrorRunes])
	}
	return msg
}
