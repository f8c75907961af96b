// Package client talks to the Chatter REST API. It backs the composer's
// mention search, file transfer and publishing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xyz-asif/chatter/internal/mentions"
	"github.com/xyz-asif/chatter/internal/transfer"
)

// APIError is a non-2xx response
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("chatter api error: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("chatter api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("chatter api error (%d)", e.Status)
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Code       string          `json:"code"`
	Data       json.RawMessage `json:"data"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New builds a client for baseURL, e.g. http://localhost:8080/api/v1
func New(baseURL, token string) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: normalized,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("api url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("api url must include scheme (https://)")
	}
	return strings.TrimRight(value, "/"), nil
}

// WithToken returns a copy that authenticates with token
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// DevLogin signs in through the development endpoint and returns the access token
func (c *Client) DevLogin(ctx context.Context, email, name string) (string, error) {
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	body := map[string]string{"email": email}
	if name != "" {
		body["name"] = name
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/dev-login", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// SearchUsers implements mentions.UserSearcher
func (c *Client) SearchUsers(ctx context.Context, term string) ([]mentions.User, error) {
	query := url.Values{}
	query.Set("searchTerm", term)

	users := []mentions.User{}
	if err := c.doJSON(ctx, http.MethodGet, "/users/search", query, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateVersion implements transfer.Remote
func (c *Client) CreateVersion(ctx context.Context, rec transfer.VersionRecord) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/files/versions", nil, rec, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) ResolveContentDocumentID(ctx context.Context, versionID string) (transfer.DocumentRef, error) {
	var ref transfer.DocumentRef
	err := c.doJSON(ctx, http.MethodGet, "/files/versions/"+url.PathEscape(versionID)+"/document", nil, nil, &ref)
	return ref, err
}

func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/files/documents/"+url.PathEscape(documentID), nil, nil, nil)
}

type created struct {
	ID string `json:"id"`
}

// CreatePost implements composer.Publisher
func (c *Client) CreatePost(ctx context.Context, subjectID, body string, documentIDs []string) (string, error) {
	req := map[string]interface{}{
		"body":               body,
		"contentDocumentIds": nonNil(documentIDs),
	}
	if subjectID != "" {
		req["subjectId"] = subjectID
	}
	var resp created
	if err := c.doJSON(ctx, http.MethodPost, "/feed/elements", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) UpdatePost(ctx context.Context, feedElementID, body string, documentIDs []string) (string, error) {
	req := map[string]interface{}{
		"body":               body,
		"contentDocumentIds": nonNil(documentIDs),
	}
	var resp created
	if err := c.doJSON(ctx, http.MethodPatch, "/feed/elements/"+url.PathEscape(feedElementID), nil, req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) CommentOnFeedElement(ctx context.Context, feedElementID, body, documentID string) (string, error) {
	req := map[string]string{"body": body}
	if documentID != "" {
		req["contentDocumentId"] = documentID
	}
	var resp created
	if err := c.doJSON(ctx, http.MethodPost, "/feed/elements/"+url.PathEscape(feedElementID)+"/comments", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) UpdateComment(ctx context.Context, commentID, body string) (string, error) {
	var resp created
	if err := c.doJSON(ctx, http.MethodPatch, "/comments/"+url.PathEscape(commentID), nil, map[string]string{"body": body}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody, respBody interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if respBody == nil || len(data) == 0 {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, respBody)
}
