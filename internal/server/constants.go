// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection WebSocket rate limit (sliding window)
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Capture list limits for REST and WebSocket history requests
	DefaultListLimit = 20
	MaxListLimit     = 500

	// Deadline for one WebSocket write
	WriteTimeout = 5 * time.Second
)
