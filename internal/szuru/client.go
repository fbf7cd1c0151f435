package szuru

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"szurutools/internal/config"
	"szurutools/internal/logging"
	"szurutools/internal/services"
)

const (
	defaultCategoryColor = "#808080"
	errorBodyLimit       = 4096
	errorMessageLimit    = 400
)

// HTTPDoer describes the HTTP client used to reach the board.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials selects how requests authenticate.
type Credentials struct {
	User     string
	Password string
	Token    string
	// AuthMode is "token", "basic" or "auto" (token when one is set).
	AuthMode string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "szuru")
		}
	}
}

// Client performs board API calls.
type Client struct {
	baseURL    string
	authHeader string
	client     HTTPDoer
	logger     *slog.Logger
}

// New constructs a client for the board at baseURL. Missing or incomplete
// credentials are reported as configuration errors before any request is made.
func New(baseURL string, creds Credentials, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "szuru", "init", "board base URL is required", nil)
	}
	header, err := authorization(creds)
	if err != nil {
		return nil, err
	}
	client := &Client{
		baseURL:    baseURL,
		authHeader: header,
		client:     http.DefaultClient,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the [szuru] configuration section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "szuru", "init", "configuration unavailable", nil)
	}
	timeout := time.Duration(cfg.Szuru.RequestTimeout) * time.Second
	return New(cfg.Szuru.BaseURL, Credentials{
		User:     cfg.Szuru.User,
		Password: cfg.Szuru.Password,
		Token:    cfg.Szuru.Token,
		AuthMode: cfg.Szuru.AuthMode,
	}, WithHTTPClient(&http.Client{Timeout: timeout}), WithLogger(logger))
}

func authorization(creds Credentials) (string, error) {
	user := strings.TrimSpace(creds.User)
	mode := strings.ToLower(strings.TrimSpace(creds.AuthMode))
	if mode == "" {
		mode = "auto"
	}
	if mode == "token" || (mode == "auto" && creds.Token != "") {
		if user == "" || creds.Token == "" {
			return "", services.Wrap(services.ErrConfiguration, "szuru", "auth", "token auth requires user and token", nil)
		}
		return "Token " + base64.StdEncoding.EncodeToString([]byte(user+":"+creds.Token)), nil
	}
	if mode != "basic" && mode != "auto" {
		return "", services.Wrap(services.ErrConfiguration, "szuru", "auth", fmt.Sprintf("unsupported auth mode %q", creds.AuthMode), nil)
	}
	if user == "" || creds.Password == "" {
		return "", services.Wrap(services.ErrConfiguration, "szuru", "auth", "basic auth requires user and password", nil)
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+creds.Password)), nil
}

// BaseURL returns the board root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string, query url.Values) string {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// doJSON sends payload (when non-nil) as JSON and decodes a JSON response
// into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(encoded)
	}
	contentType := ""
	if payload != nil {
		contentType = "application/json"
	}
	return c.do(ctx, method, c.endpoint(path, query), body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authHeader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("szuru %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	logging.WithContext(ctx, c.logger).Debug("szuru request",
		logging.String("method", method),
		logging.String("url", target),
		logging.Int("status", resp.StatusCode),
		logging.Duration("duration", time.Since(started)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(method, target, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return fmt.Errorf("szuru %s %s: unexpected content type %q", method, target, resp.Header.Get("Content-Type"))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode szuru %s %s response: %w", method, target, err)
	}
	return nil
}

func decodeAPIError(method, target string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	apiErr := &APIError{Method: method, URL: target, Status: resp.StatusCode}
	var payload struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && (payload.Name != "" || payload.Description != "") {
		apiErr.Name = payload.Name
		apiErr.Message = payload.Description
		if apiErr.Message == "" {
			apiErr.Message = payload.Title
		}
		return apiErr
	}
	message := strings.TrimSpace(string(raw))
	if len(message) > errorMessageLimit {
		message = message[:errorMessageLimit]
	}
	apiErr.Message = message
	return apiErr
}

// EnsureCategory makes sure a tag category exists, creating it with the
// given display order when the lookup fails.
func (c *Client) EnsureCategory(ctx context.Context, name string, order int) error {
	if err := c.doJSON(ctx, http.MethodGet, "api/tag-category/"+url.PathEscape(name), nil, nil, nil); err == nil {
		return nil
	} else if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	payload := map[string]any{"name": name, "color": defaultCategoryColor, "order": order}
	if err := c.doJSON(ctx, http.MethodPost, "api/tag-categories", nil, payload, nil); err != nil {
		if IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create tag category %q: %w", name, err)
	}
	return nil
}

// EnsureTag makes sure a tag exists, creating it in category when the lookup
// fails.
func (c *Client) EnsureTag(ctx context.Context, name, category string) (EnsureResult, error) {
	if err := c.doJSON(ctx, http.MethodGet, "api/tag/"+url.PathEscape(name), nil, nil, nil); err == nil {
		return EnsureExists, nil
	} else if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	payload := map[string]any{"names": []string{name}, "category": category}
	if err := c.doJSON(ctx, http.MethodPost, "api/tags", nil, payload, nil); err != nil {
		if IsAlreadyExists(err) {
			return EnsureExists, nil
		}
		return "", fmt.Errorf("create tag %q: %w", name, err)
	}
	return EnsureCreated, nil
}

// Implications returns the primary names of the tags that tag implies, as
// stored on the board.
func (c *Client) Implications(ctx context.Context, tag string) ([]string, error) {
	var resource Tag
	if err := c.doJSON(ctx, http.MethodGet, "api/tag/"+url.PathEscape(tag), nil, nil, &resource); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resource.Implications))
	for _, rel := range resource.Implications {
		if name := rel.PrimaryName(); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// SearchPosts runs a post search query.
func (c *Client) SearchPosts(ctx context.Context, query string, limit, offset int) (*PostPage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	var page PostPage
	if err := c.doJSON(ctx, http.MethodGet, "api/posts/", params, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdatePostTags replaces the tags of a post. The board rejects the update
// when version is stale.
func (c *Client) UpdatePostTags(ctx context.Context, id int, tags []string, version int) (*Post, error) {
	payload := map[string]any{"tags": tags, "version": version}
	var post Post
	if err := c.doJSON(ctx, http.MethodPut, "api/post/"+strconv.Itoa(id), nil, payload, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeleteTag removes a tag. The board rejects the delete when version is stale.
func (c *Client) DeleteTag(ctx context.Context, name string, version int) error {
	payload := map[string]any{"version": version}
	return c.doJSON(ctx, http.MethodDelete, "api/tag/"+url.PathEscape(name), nil, payload, nil)
}
