// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/llmdash/pkg/inventory"
	"github.com/AleutianAI/llmdash/pkg/ollama"
	"github.com/AleutianAI/llmdash/services/dashboard/middleware"
	"github.com/AleutianAI/llmdash/services/dashboard/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubInventory returns a fixed snapshot for route wiring tests.
type stubInventory struct {
	snap *inventory.Snapshot
}

func (s *stubInventory) GetSnapshot(context.Context, bool) (*inventory.Snapshot, error) {
	return s.snap, nil
}

func (s *stubInventory) Cached() *inventory.Snapshot { return s.snap }

func (s *stubInventory) Invalidate() {}

func (s *stubInventory) PullModel(context.Context, string, ollama.PullProgress) inventory.Result {
	return inventory.Result{OK: true, Message: "pulled"}
}

func (s *stubInventory) DeleteModel(context.Context, string) inventory.Result {
	return inventory.Result{OK: true, Message: "deleted"}
}

func setupTestRouter() *gin.Engine {
	router := gin.New()
	svc := &stubInventory{
		snap: &inventory.Snapshot{
			Models:    []ollama.Model{{Name: "llama3:8b", Size: 4 << 30}},
			Server:    inventory.ServerStatus{Reachable: true},
			FetchedAt: time.Now(),
		},
	}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	SetupRoutes(router, svc, metrics)
	return router
}

func TestSetupRoutes_Registered(t *testing.T) {
	router := setupTestRouter()

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{"GET", "/health", "", http.StatusOK},
		{"GET", "/metrics", "", http.StatusOK},
		{"GET", "/v1/inventory", "", http.StatusOK},
		{"POST", "/v1/inventory/refresh", "", http.StatusOK},
		{"GET", "/v1/system", "", http.StatusOK},
		{"GET", "/v1/models", "", http.StatusOK},
		{"DELETE", "/v1/models/llama3:8b", "", http.StatusOK},
		{"GET", "/v1/nonexistent", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSetupRoutes_RequestIDApplied(t *testing.T) {
	router := setupTestRouter()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader),
		"every response should carry a request ID")
}
