// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package ollama is the HTTP client for the local Ollama daemon.

# Problem Statement

The dashboard needs five things from the daemon: is it up, which models
are installed, what version is it, pull a model, delete a model. Errors
must be distinguishable by kind, because the inventory cache degrades
differently for a dead daemon (keep serving the last snapshot, flag
unreachable) than for a malformed response (fail the refresh).

# Solution

A thin client over the daemon's management API:

	client := ollama.NewClient("http://localhost:11434")

	err := client.Heartbeat(ctx)              // GET /
	models, err := client.ListModels(ctx)     // GET /api/tags
	version, err := client.Version(ctx)       // GET /api/version
	err = client.Pull(ctx, "mistral", cb)     // POST /api/pull (streaming)
	err = client.Delete(ctx, "mistral")       // DELETE /api/delete

All failures are returned as *ClientError with a Kind for programmatic
handling and remediation text for display.

# Progress Callback

Pulls report progress via Ollama's native streaming updates:

	err := client.Pull(ctx, "llama3:8b", func(status string, completed, total int64) {
	    if total > 0 {
	        fmt.Printf("\r  %s: %.1f%%", status, float64(completed)/float64(total)*100)
	    }
	})

A nil callback consumes the stream silently, which turns the pull into a
single blocking call.

# Timeouts

Reads carry short internal timeouts (heartbeat 5s, list 10s, delete 30s).
Pulls run under the caller's context only: model downloads legitimately
take many minutes. A daemon that hangs past an internal deadline is
reported as a connectivity failure; KindCancelled is reserved for the
caller's own context ending.
*/
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Error Types
// -----------------------------------------------------------------------------

// ErrorKind categorizes daemon operation failures for programmatic handling.
type ErrorKind int

const (
	// KindConnectivity indicates the daemon is not reachable.
	KindConnectivity ErrorKind = iota

	// KindParse indicates the daemon returned a malformed response body.
	KindParse

	// KindNotFound indicates the named model does not exist.
	KindNotFound

	// KindPullFailed indicates a model download failed.
	KindPullFailed

	// KindCancelled indicates the operation's context was cancelled.
	KindCancelled
)

// String returns the error kind as a string for logging.
func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "CONNECTIVITY"
	case KindParse:
		return "PARSE"
	case KindNotFound:
		return "NOT_FOUND"
	case KindPullFailed:
		return "PULL_FAILED"
	case KindCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// ClientError provides structured error information for daemon operations.
type ClientError struct {
	// Kind categorizes the error for programmatic handling.
	Kind ErrorKind

	// Model is the model name involved, if any.
	Model string

	// Message is a human-readable error description.
	Message string

	// Detail provides technical information for debugging.
	Detail string

	// Remediation suggests how to fix the issue.
	Remediation string
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return e.Message
}

// FullError returns a detailed error message including remediation.
func (e *ClientError) FullError() string {
	var buf bytes.Buffer
	buf.WriteString(e.Message)
	if e.Model != "" {
		buf.WriteString(fmt.Sprintf(" (model: %s)", e.Model))
	}
	if e.Detail != "" {
		buf.WriteString("\n\nDetails: ")
		buf.WriteString(e.Detail)
	}
	if e.Remediation != "" {
		buf.WriteString("\n\nTo fix:\n")
		buf.WriteString(e.Remediation)
	}
	return buf.String()
}

// IsKind reports whether err is a *ClientError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Kind == kind
}

// -----------------------------------------------------------------------------
// Data Types
// -----------------------------------------------------------------------------

// Model describes one installed model as reported by the daemon.
// Immutable once fetched; the inventory cache replaces lists wholesale.
type Model struct {
	// Name is the model identifier (e.g., "llama3:8b").
	Name string `json:"name"`

	// Size is the model file size in bytes.
	Size int64 `json:"size"`

	// Digest is the model's content hash.
	Digest string `json:"digest"`

	// ModifiedAt is when the model was last modified.
	ModifiedAt time.Time `json:"modified_at"`

	// Family is the model family (e.g., "llama").
	Family string `json:"family,omitempty"`

	// ParameterSize is the human-readable parameter count (e.g., "8B").
	ParameterSize string `json:"parameter_size,omitempty"`

	// QuantizationLevel is the quantization type (e.g., "Q4_K_M").
	QuantizationLevel string `json:"quantization_level,omitempty"`
}

// PullProgress is called during a download to report progress.
//
//   - status: current operation ("pulling manifest", "pulling sha256:...")
//   - completed: bytes downloaded so far
//   - total: total bytes to download (0 if unknown)
type PullProgress func(status string, completed, total int64)

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Per-operation deadlines, mirroring the daemon's expected response times.
// Pulls are exempt: they run as long as the caller's context allows.
const (
	defaultHeartbeatTimeout = 5 * time.Second
	defaultListTimeout      = 10 * time.Second
	defaultDeleteTimeout    = 30 * time.Second
)

// heartbeatBody is the plain-text banner the daemon serves at its root.
const heartbeatBody = "Ollama is running"

// Client talks to the Ollama daemon's management API.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	heartbeatTimeout time.Duration
	listTimeout      time.Duration
	deleteTimeout    time.Duration
}

// NewClient creates a client for the daemon at baseURL.
//
// The URL is normalized (trailing slash removed). No connection is made
// until the first call.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		httpClient:       &http.Client{},
		heartbeatTimeout: defaultHeartbeatTimeout,
		listTimeout:      defaultListTimeout,
		deleteTimeout:    defaultDeleteTimeout,
	}
}

// BaseURL returns the daemon URL this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// -----------------------------------------------------------------------------
// Reachability
// -----------------------------------------------------------------------------

// Heartbeat probes the daemon's root endpoint.
//
// The daemon serves a fixed "Ollama is running" banner at /. Anything
// else — connection refused, timeout, unexpected body — is reported as
// a connectivity failure, since the caller's only decision is
// reachable-or-not.
func (c *Client) Heartbeat(ctx context.Context) error {
	caller := ctx
	ctx, cancel := context.WithTimeout(ctx, c.heartbeatTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return c.connectivityError("", "Failed to create heartbeat request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.requestError("", err, caller)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return c.connectivityError("", "Failed to read heartbeat response", err)
	}

	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), heartbeatBody) {
		return &ClientError{
			Kind:        KindConnectivity,
			Message:     "Unexpected response from Ollama",
			Detail:      fmt.Sprintf("status %d, body %q", resp.StatusCode, truncate(string(body), 120)),
			Remediation: fmt.Sprintf("Check that %s is really an Ollama server", c.baseURL),
		}
	}
	return nil
}

// versionResponse is the response from /api/version.
type versionResponse struct {
	Version string `json:"version"`
}

// Version returns the daemon's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	caller := ctx
	ctx, cancel := context.WithTimeout(ctx, c.heartbeatTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return "", c.connectivityError("", "Failed to create version request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.requestError("", err, caller)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", c.statusError("", resp.StatusCode, body)
	}

	var vr versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return "", c.parseError("", err)
	}
	return vr.Version, nil
}

// -----------------------------------------------------------------------------
// Model Listing
// -----------------------------------------------------------------------------

// tagsResponse is the response from /api/tags.
type tagsResponse struct {
	Models []tagEntry `json:"models"`
}

// tagEntry is a model entry from /api/tags.
//
// NOTE: Details may be empty or partially populated depending on the
// daemon version. Missing fields stay at zero values.
type tagEntry struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	ModifiedAt time.Time `json:"modified_at"`
	Details    struct {
		Family            string `json:"family"`
		ParameterSize     string `json:"parameter_size"`
		QuantizationLevel string `json:"quantization_level"`
	} `json:"details"`
}

// ListModels returns all models installed in the daemon, sorted by name.
//
// An empty list is a valid result, not an error. Malformed bodies are
// reported as KindParse so the cache can keep them distinct from
// connectivity failures.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	caller := ctx
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, c.connectivityError("", "Failed to create list request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.requestError("", err, caller)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, c.statusError("", resp.StatusCode, body)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, c.parseError("", err)
	}

	models := make([]Model, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, Model{
			Name:              m.Name,
			Size:              m.Size,
			Digest:            m.Digest,
			ModifiedAt:        m.ModifiedAt,
			Family:            m.Details.Family,
			ParameterSize:     m.Details.ParameterSize,
			QuantizationLevel: m.Details.QuantizationLevel,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	slog.Debug("Fetched model list from Ollama", "count", len(models))
	return models, nil
}

// -----------------------------------------------------------------------------
// Model Pulling
// -----------------------------------------------------------------------------

// pullRequest is the request body for /api/pull.
type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// pullUpdate is a single progress line from /api/pull streaming.
type pullUpdate struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Pull downloads a model, reporting progress via the callback.
//
// The request streams NDJSON progress lines from the daemon; each is
// forwarded to the callback if one is provided. An error field in any
// progress line aborts the pull. No deadline is imposed beyond the
// caller's context — large models take as long as they take.
func (c *Client) Pull(ctx context.Context, name string, progress PullProgress) error {
	reqBytes, err := json.Marshal(pullRequest{Name: name, Stream: true})
	if err != nil {
		return &ClientError{
			Kind:        KindPullFailed,
			Model:       name,
			Message:     "Failed to encode pull request",
			Detail:      err.Error(),
			Remediation: "This is an internal error - please report it",
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(reqBytes))
	if err != nil {
		return c.connectivityError(name, "Failed to create pull request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.requestError(name, err, ctx)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusNotFound {
			return c.notFoundError(name)
		}
		return &ClientError{
			Kind:        KindPullFailed,
			Model:       name,
			Message:     fmt.Sprintf("Pull failed with status %d", resp.StatusCode),
			Detail:      string(body),
			Remediation: "Check if the model name is correct and the registry is accessible",
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	// Progress lines can get large when many layers download at once
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return c.cancelledError(name, ctx)
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var update pullUpdate
		if err := json.Unmarshal(line, &update); err != nil {
			slog.Debug("Skipping unparseable progress line", "error", err)
			continue
		}

		if update.Error != "" {
			if strings.Contains(update.Error, "not found") {
				return c.notFoundError(name)
			}
			return &ClientError{
				Kind:        KindPullFailed,
				Model:       name,
				Message:     "Pull failed",
				Detail:      update.Error,
				Remediation: "Check the network connection and try again",
			}
		}

		if progress != nil {
			progress(update.Status, update.Completed, update.Total)
		}
	}

	if err := scanner.Err(); err != nil {
		return &ClientError{
			Kind:        KindPullFailed,
			Model:       name,
			Message:     "Error reading pull response",
			Detail:      err.Error(),
			Remediation: "Check the network connection and try again",
		}
	}

	slog.Info("Model pulled", "model", name)
	return nil
}

// -----------------------------------------------------------------------------
// Model Deletion
// -----------------------------------------------------------------------------

// deleteRequest is the request body for /api/delete.
type deleteRequest struct {
	Name string `json:"name"`
}

// Delete removes a model from the daemon.
//
// A daemon 404 maps to KindNotFound, which covers both a model absent
// from the last snapshot and one deleted out-of-band since.
func (c *Client) Delete(ctx context.Context, name string) error {
	caller := ctx
	ctx, cancel := context.WithTimeout(ctx, c.deleteTimeout)
	defer cancel()

	reqBytes, err := json.Marshal(deleteRequest{Name: name})
	if err != nil {
		return c.connectivityError(name, "Failed to encode delete request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/delete", bytes.NewReader(reqBytes))
	if err != nil {
		return c.connectivityError(name, "Failed to create delete request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.requestError(name, err, caller)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		slog.Info("Model deleted", "model", name)
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return c.notFoundError(name)
	default:
		body, _ := io.ReadAll(resp.Body)
		return c.statusError(name, resp.StatusCode, body)
	}
}

// -----------------------------------------------------------------------------
// Error Constructors
// -----------------------------------------------------------------------------

func (c *Client) connectivityError(model, message string, err error) *ClientError {
	return &ClientError{
		Kind:        KindConnectivity,
		Model:       model,
		Message:     message,
		Detail:      err.Error(),
		Remediation: "Check that Ollama is running: ollama serve",
	}
}

// requestError classifies a transport-level failure from httpClient.Do.
//
// Only the caller's own context ending counts as Cancelled. Expiry of
// the client's internal per-operation deadline means the daemon hung,
// which is a connectivity failure like a refused connection.
func (c *Client) requestError(model string, err error, caller context.Context) *ClientError {
	if caller.Err() != nil {
		return c.cancelledError(model, caller)
	}
	return &ClientError{
		Kind:        KindConnectivity,
		Model:       model,
		Message:     "Cannot connect to Ollama",
		Detail:      err.Error(),
		Remediation: fmt.Sprintf("Ensure Ollama is running and responsive at %s", c.baseURL),
	}
}

func (c *Client) cancelledError(model string, ctx context.Context) *ClientError {
	return &ClientError{
		Kind:        KindCancelled,
		Model:       model,
		Message:     "Request cancelled",
		Detail:      ctx.Err().Error(),
		Remediation: "Try again or increase the timeout",
	}
}

func (c *Client) notFoundError(model string) *ClientError {
	return &ClientError{
		Kind:        KindNotFound,
		Model:       model,
		Message:     fmt.Sprintf("Model '%s' not found", model),
		Remediation: "Check the model name against `llmdash models list`",
	}
}

func (c *Client) statusError(model string, status int, body []byte) *ClientError {
	return &ClientError{
		Kind:        KindParse,
		Model:       model,
		Message:     fmt.Sprintf("Ollama returned status %d", status),
		Detail:      truncate(string(body), 512),
		Remediation: "Check the Ollama logs for errors",
	}
}

func (c *Client) parseError(model string, err error) *ClientError {
	return &ClientError{
		Kind:        KindParse,
		Model:       model,
		Message:     "Failed to parse Ollama response",
		Detail:      err.Error(),
		Remediation: "This may indicate an Ollama version mismatch",
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
