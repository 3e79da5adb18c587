// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package github talks to the GitHub repository Contents API: one GET to
// read a file, one PUT to create or update one. Updates carry the blob SHA
// from a prior read so a concurrent writer surfaces as a conflict instead
// of a silent overwrite.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/meshintel/repopipe/pkg/types"
)

// APIBase is the GitHub REST API root. Declared as a var so tests can
// substitute an httptest server.
var APIBase = "https://api.github.com"

// FileHandle identifies a file in a hosted repository. Branch may be empty,
// meaning the repository's default branch.
type FileHandle struct {
	Owner  string
	Repo   string
	Path   string
	Branch string
}

func (h FileHandle) String() string {
	s := h.Owner + "/" + h.Repo + "/" + h.Path
	if h.Branch != "" {
		s += "@" + h.Branch
	}
	return s
}

// FileContent is a file read from the Contents API: decoded bytes plus the
// blob SHA used as the revision marker for conditional updates.
type FileContent struct {
	Data    []byte
	SHA     string
	Path    string
	HTMLURL string
}

// WriteResult describes a completed create or update.
type WriteResult struct {
	Created    bool
	CommitSHA  string
	ContentSHA string
	HTMLURL    string
}

// Client is an authenticated Contents API client.
type Client struct {
	HTTP      *http.Client
	Token     string
	UserAgent string
}

// NewClient builds a client with the configured timeout and user agent.
func NewClient(token string, cfg types.HTTPConfig) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		Token:     token,
		UserAgent: cfg.UserAgent,
	}
}

// contentsURL builds the Contents API URL for a handle, escaping each path
// segment but keeping the separators.
func contentsURL(h FileHandle) string {
	segments := strings.Split(h.Path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		APIBase, url.PathEscape(h.Owner), url.PathEscape(h.Repo), strings.Join(segments, "/"))
	if h.Branch != "" {
		u += "?ref=" + url.QueryEscape(h.Branch)
	}
	return u
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
}

// contentsResponse is the Contents API file representation. The content
// field is base64 with newlines inserted every 60 characters.
type contentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
	Path     string `json:"path"`
	HTMLURL  string `json:"html_url"`
}

// GetFile reads a file and returns its decoded bytes and blob SHA.
func (c *Client) GetFile(ctx context.Context, h FileHandle) (*FileContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentsURL(h), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", h, err)
	}
	c.setHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &RemoteError{Detail: fmt.Sprintf("GET %s: %v", h, err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Detail: fmt.Sprintf("reading response for %s: %v", h, err), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classify(h, resp.StatusCode, body)
	}

	// A directory path answers with a JSON array of entries.
	if len(bytes.TrimSpace(body)) > 0 && bytes.TrimSpace(body)[0] == '[' {
		return nil, &RemoteError{Status: resp.StatusCode, Detail: fmt.Sprintf("%s is a directory, not a file", h)}
	}

	var cr contentsResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Detail: fmt.Sprintf("parsing contents response for %s: %v", h, err), Err: err}
	}
	if cr.Type != "" && cr.Type != "file" {
		return nil, &RemoteError{Status: resp.StatusCode, Detail: fmt.Sprintf("%s is a %s, not a file", h, cr.Type)}
	}

	data, err := decodeContent(cr.Content)
	if err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Detail: fmt.Sprintf("decoding content of %s: %v", h, err), Err: err}
	}

	return &FileContent{
		Data:    data,
		SHA:     cr.SHA,
		Path:    cr.Path,
		HTMLURL: cr.HTMLURL,
	}, nil
}

// decodeContent strips the newlines GitHub inserts into base64 content and
// decodes it.
func decodeContent(content string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, content)
	return base64.StdEncoding.DecodeString(cleaned)
}

// putPayload is the create/update request body. SHA is present only for
// updates; Branch only when the caller targets a non-default branch.
type putPayload struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// PutFile creates or updates a file. An empty sha performs a create; a
// non-empty sha performs a conditional update that the API rejects when the
// file changed since the sha was read.
func (c *Client) PutFile(ctx context.Context, h FileHandle, data []byte, message, sha string) (*WriteResult, error) {
	payload := putPayload{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  h.Branch,
		SHA:     sha,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding write payload for %s: %w", h, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, contentsURL(h), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", h, err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &RemoteError{Detail: fmt.Sprintf("PUT %s: %v", h, err), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Detail: fmt.Sprintf("reading response for %s: %v", h, err), Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// 201 means created, 200 means updated.
	case http.StatusConflict:
		return nil, &ConflictError{Handle: h, Status: resp.StatusCode, Detail: apiMessage(respBody)}
	case http.StatusUnprocessableEntity:
		// 422 with a sha supplied is the API's other spelling of a stale
		// revision marker.
		if sha != "" {
			return nil, &ConflictError{Handle: h, Status: resp.StatusCode, Detail: apiMessage(respBody)}
		}
		return nil, &RemoteError{Status: resp.StatusCode, Detail: apiMessage(respBody)}
	default:
		return nil, classify(h, resp.StatusCode, respBody)
	}

	var pr putResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Detail: fmt.Sprintf("parsing write response for %s: %v", h, err), Err: err}
	}

	return &WriteResult{
		Created:    resp.StatusCode == http.StatusCreated,
		CommitSHA:  pr.Commit.SHA,
		ContentSHA: pr.Content.SHA,
		HTMLURL:    pr.Content.HTMLURL,
	}, nil
}
