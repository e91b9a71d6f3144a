// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("POST /voting/vote", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status, duration_ms).

# CORS Middleware

CORS wraps the whole mux and exposes the X-Voter-Token header so browser
clients can persist a provisioned token.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.KindErrorResponse(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
	err := middleware.ParseJSONBody(r, &req)

# Client IP

GetClientIP checks X-Forwarded-For (first entry), X-Real-IP, then RemoteAddr.
*/
package middleware
