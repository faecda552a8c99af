package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TokenStore persists the session between invocations.
type TokenStore interface {
	Tokens() (access, refresh string)
	SaveTokens(access, refresh string) error
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
}

func New(baseURL string, tokens TokenStore) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
	}
}

type Note struct {
	ID        int64     `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	Tags      []string  `json:"tags" yaml:"tags"`
	CreatedAt time.Time `json:"created_at" yaml:"created"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated"`
}

type NoteInput struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// APIError is the server's error envelope.
type APIError struct {
	Status    int             `json:"-"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"requestId"`
	Details   json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	if len(e.Details) > 0 && string(e.Details) != "null" {
		msg += " " + string(e.Details)
	}
	return msg
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	if username != "" {
		body["username"] = username
	}
	return c.authenticate(ctx, "/auth/register", body)
}

func (c *Client) Login(ctx context.Context, identifier, password string) error {
	return c.authenticate(ctx, "/auth/login", map[string]string{"username": identifier, "password": password})
}

func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.tokens.Tokens()
	if refresh != "" {
		if err := c.do(ctx, http.MethodPost, "/auth/logout", map[string]string{"refresh": refresh}, nil, false); err != nil {
			return err
		}
	}
	return c.tokens.SaveTokens("", "")
}

func (c *Client) ListNotes(ctx context.Context) ([]Note, error) {
	var out []Note
	err := c.do(ctx, http.MethodGet, "/notes", nil, &out, true)
	return out, err
}

func (c *Client) GetNote(ctx context.Context, id int64) (Note, error) {
	var out Note
	err := c.do(ctx, http.MethodGet, "/notes/"+strconv.FormatInt(id, 10), nil, &out, true)
	return out, err
}

func (c *Client) CreateNote(ctx context.Context, title, content string, tags []string) (Note, error) {
	if tags == nil {
		tags = []string{}
	}
	var out Note
	err := c.do(ctx, http.MethodPost, "/notes", map[string]any{"title": title, "content": content, "tags": tags}, &out, true)
	return out, err
}

// UpdateNote sends a PATCH with only the set fields.
func (c *Client) UpdateNote(ctx context.Context, id int64, in NoteInput) (Note, error) {
	var out Note
	err := c.do(ctx, http.MethodPatch, "/notes/"+strconv.FormatInt(id, 10), in, &out, true)
	return out, err
}

func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+strconv.FormatInt(id, 10), nil, nil, true)
}

func (c *Client) SearchNotes(ctx context.Context, keyword, tag string) ([]Note, error) {
	q := url.Values{}
	if keyword != "" {
		q.Set("q", keyword)
	}
	if tag != "" {
		q.Set("tag", tag)
	}

	var out []Note
	err := c.do(ctx, http.MethodGet, "/notes/search?"+q.Encode(), nil, &out, true)
	return out, err
}

func (c *Client) authenticate(ctx context.Context, path string, body any) error {
	var pair tokenPair
	if err := c.do(ctx, http.MethodPost, path, body, &pair, false); err != nil {
		return err
	}
	return c.tokens.SaveTokens(pair.Access, pair.Refresh)
}

// refresh swaps the stored refresh token for a new pair.
func (c *Client) refresh(ctx context.Context) error {
	_, refresh := c.tokens.Tokens()
	if refresh == "" {
		return errors.New("not logged in")
	}
	return c.authenticate(ctx, "/auth/refresh", map[string]string{"refresh": refresh})
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	err := c.send(ctx, method, path, body, out, authed)

	var apiErr *APIError
	if authed && errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		if rerr := c.refresh(ctx); rerr != nil {
			return err
		}
		return c.send(ctx, method, path, body, out, authed)
	}

	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		access, _ := c.tokens.Tokens()
		if access == "" {
			return errors.New("not logged in, run `notesctl login` first")
		}
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func decodeAPIError(status int, data []byte) error {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == nil {
		return &APIError{Status: status, Code: "http_error", Message: strings.TrimSpace(string(data))}
	}
	envelope.Error.Status = status
	return envelope.Error
}
