// Package backend talks to the article and generation API: listing and
// saving articles, generating drafts from briefs, and analysing images.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/newsroom/internal/domain"
)

// RequestIDHeader carries a per-request id the backend can log alongside ours.
const RequestIDHeader = "X-Request-Id"

const maxErrorBody = 4 << 10

// Client is a reusable HTTP client for the backend API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
	newID   func() string
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded. It applies
// to whichever *http.Client the client ends up with, regardless of option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestIDs overrides the request id generator; tests use it for stable ids.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// NewClient creates a client rooted at baseURL, e.g. http://127.0.0.1:8000.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{},
		logger:  zap.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListArticles fetches every saved article, newest first as ordered by the API.
func (c *Client) ListArticles(ctx context.Context) ([]domain.Article, error) {
	var articles []domain.Article
	if err := c.do(ctx, "list articles", http.MethodGet, "/articles", nil, &articles); err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	return articles, nil
}

// SaveRequest is the upsert payload for POST /articles.
type SaveRequest struct {
	ID      domain.ArticleID `json:"id,omitempty"`
	Title   string           `json:"title"`
	Content string           `json:"content"`
	Angle   string           `json:"angle"`
	Status  domain.Status    `json:"status"`
	Sources []domain.Source  `json:"sources"`
	UserID  string           `json:"user_id,omitempty"`
}

// SaveResult is the backend acknowledgement of an upsert.
type SaveResult struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewSaveRequest builds the upsert payload for article with the chosen status.
// Sources always encode as a list, never null.
func NewSaveRequest(article domain.Article, status domain.Status, userID string) SaveRequest {
	sources := article.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return SaveRequest{
		ID:      article.ID,
		Title:   article.Title,
		Content: article.Content,
		Angle:   article.Angle,
		Status:  status.OrDraft(),
		Sources: sources,
		UserID:  userID,
	}
}

// SaveArticle inserts (no id) or updates (with id) an article.
func (c *Client) SaveArticle(ctx context.Context, req SaveRequest) (SaveResult, error) {
	var result SaveResult
	if err := c.do(ctx, "save article", http.MethodPost, "/articles", req, &result); err != nil {
		return SaveResult{}, err
	}
	return result, nil
}

// Generate asks the backend to research and draft an article for brief.
func (c *Client) Generate(ctx context.Context, brief domain.Brief) (domain.Draft, error) {
	var draft domain.Draft
	if err := c.do(ctx, "generate", http.MethodPost, "/generate", brief.Normalized(), &draft); err != nil {
		return domain.Draft{}, err
	}
	if draft.Sources == nil {
		draft.Sources = []domain.Source{}
	}
	return draft, nil
}

// AnalyzeImage requests a journalistic caption and analysis for imageURL.
// The result is markdown.
func (c *Client) AnalyzeImage(ctx context.Context, imageURL string) (string, error) {
	payload := map[string]string{"image_url": strings.TrimSpace(imageURL)}
	var resp struct {
		Analysis string `json:"analysis"`
	}
	if err := c.do(ctx, "analyze image", http.MethodPost, "/analyze-image", payload, &resp); err != nil {
		return "", err
	}
	return resp.Analysis, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload, v any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: %s: marshal payload: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: %s: new request: %w", op, err)
	}
	requestID := c.newID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.With(zap.String("op", op), zap.String("request_id", requestID))
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("backend request failed", zap.Error(err))
		return &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	log.Debug("backend response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
		log.Warn("backend rejected request", zap.Int("status", resp.StatusCode), zap.String("detail", apiErr.Detail))
		return apiErr
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readDetail extracts FastAPI-style {"detail": ...} bodies, falling back to
// the raw text.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Detail) > 0 {
		var text string
		if err := json.Unmarshal(body.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		return strings.TrimSpace(string(body.Detail))
	}
	return strings.TrimSpace(string(raw))
}
