// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the dashboard service.
//
// # Request ID Flow
//
// The request-id middleware assigns every request a unique identifier,
// reusing the client's X-Request-ID header when present. The identifier
// is stored in the Gin context for handlers and echoed back in the
// response so clients can correlate logs across systems.
//
//	Request
//	   │
//	   ▼
//	RequestID middleware
//	   │
//	   ├─► Reuse "X-Request-ID" header, or generate a UUID
//	   │
//	   └─► Store in context + set response header
//	           │
//	           ▼
//	       Handler (retrieves via GetRequestID)
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the HTTP header carrying the request identifier.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the context key for storing the request ID.
// Using a prefixed key prevents collisions with other context values.
const requestIDKey = "llmdash_request_id"

// RequestID creates a Gin middleware that tags each request with an ID.
//
// # Description
//
// Reuses the incoming X-Request-ID header when the client supplied one,
// otherwise generates a new UUIDv4. The ID is stored in the context and
// set on the response header before handlers run.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware function ready for use with Gin
//
// # Examples
//
//	router := gin.New()
//	router.Use(middleware.RequestID())
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)

		c.Next()
	}
}

// GetRequestID retrieves the request ID from the Gin context.
//
// # Inputs
//
//   - c: Gin context. Must not be nil.
//
// # Outputs
//
//   - string: The request ID, or empty string if the middleware did not run
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(requestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
