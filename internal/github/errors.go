// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// AuthError signals rejected credentials (HTTP 401): the token is invalid,
// expired, or missing.
type AuthError struct {
	Status int
	Detail string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: HTTP %d: %s", e.Status, e.Detail)
}

// PermissionError signals valid credentials without the required scope
// (HTTP 403).
type PermissionError struct {
	Status int
	Detail string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission error: HTTP %d: %s", e.Status, e.Detail)
}

// NotFoundError signals that the repository or path does not exist
// (HTTP 404). GitHub also answers 404 for repositories the token cannot
// see at all, so a typo'd owner and a private repo look the same here.
type NotFoundError struct {
	Handle FileHandle
	Detail string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s: %s", e.Handle, e.Detail)
}

// ConflictError signals that the revision marker (blob SHA) sent with a
// write no longer matches the file at the destination: someone else wrote
// to it between the pre-check and the write. The caller should re-fetch
// and retry; this client never retries on its own.
type ConflictError struct {
	Handle FileHandle
	Status int
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s: stale revision marker (HTTP %d): %s", e.Handle, e.Status, e.Detail)
}

// RemoteError covers every other non-success response, plus transport
// failures and timeouts (Status 0).
type RemoteError struct {
	Status int
	Detail string
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("remote error: %s", e.Detail)
	}
	return fmt.Sprintf("remote error: HTTP %d: %s", e.Status, e.Detail)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// apiMessage extracts the "message" field from a GitHub error body, falling
// back to the raw body truncated to something printable.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// classify maps a non-2xx response to the error taxonomy. Conflict
// detection happens at the write call site, which knows whether a revision
// marker was sent.
func classify(h FileHandle, status int, body []byte) error {
	msg := apiMessage(body)
	switch status {
	case http.StatusUnauthorized:
		return &AuthError{Status: status, Detail: msg}
	case http.StatusForbidden:
		return &PermissionError{Status: status, Detail: msg}
	case http.StatusNotFound:
		return &NotFoundError{Handle: h, Detail: msg}
	default:
		return &RemoteError{Status: status, Detail: msg}
	}
}
