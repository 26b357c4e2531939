// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP surface of the dashboard service.
//
// Every handler is a constructor returning a gin.HandlerFunc, with the
// inventory service and metrics passed in explicitly. Handlers never
// talk to the daemon directly; all daemon access goes through the
// inventory cache so the TTL and invalidation rules apply uniformly.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/AleutianAI/llmdash/pkg/inventory"
	"github.com/AleutianAI/llmdash/pkg/ollama"
)

// InventoryService is the slice of the inventory cache the handlers
// depend on. *inventory.Cache satisfies it; tests provide mocks.
type InventoryService interface {
	GetSnapshot(ctx context.Context, force bool) (*inventory.Snapshot, error)
	Cached() *inventory.Snapshot
	Invalidate()
	PullModel(ctx context.Context, name string, progress ollama.PullProgress) inventory.Result
	DeleteModel(ctx context.Context, name string) inventory.Result
}

// errorStatus maps a failure to an HTTP status code.
//
// Daemon connectivity problems are 503 (the dashboard is fine, the
// daemon is not), unknown models are 404, daemon-side failures are 502,
// and anything else is a 500.
func errorStatus(err error) int {
	switch {
	case ollama.IsKind(err, ollama.KindNotFound):
		return http.StatusNotFound
	case ollama.IsKind(err, ollama.KindConnectivity):
		return http.StatusServiceUnavailable
	case ollama.IsKind(err, ollama.KindPullFailed), ollama.IsKind(err, ollama.KindParse):
		return http.StatusBadGateway
	case errors.Is(err, inventory.ErrEmptyModelName):
		return http.StatusBadRequest
	default:
		// System query failures and anything unclassified.
		return http.StatusInternalServerError
	}
}
