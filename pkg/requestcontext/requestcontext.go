// Package requestcontext carries request-scoped values: the request ID and a
// single "now" shared by every operation in the request, so transaction
// timestamps and expiry checks agree with each other.
package requestcontext

import (
	"context"
	"time"
)

type contextKeyRequestID struct{}
type contextKeyRequestTime struct{}

// WithRequestID stores the request ID in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

// RequestID returns the request ID from ctx, or "" when absent.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID{}).(string); ok {
		return id
	}
	return ""
}

// WithTime injects a specific time into a context.
// Useful for service tests, CLI commands and workers that need a fixed clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime{}, t)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyRequestTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

type contextKeyClient struct{}

type clientMetadata struct {
	ip        string
	userAgent string
}

// WithClientMetadata stores the resolved client IP and User-Agent in ctx.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, contextKeyClient{}, clientMetadata{ip: ip, userAgent: userAgent})
}

// ClientIP returns the client IP from ctx, or "" when absent.
func ClientIP(ctx context.Context) string {
	md, _ := ctx.Value(contextKeyClient{}).(clientMetadata)
	return md.ip
}

// UserAgent returns the client User-Agent from ctx, or "" when absent.
func UserAgent(ctx context.Context) string {
	md, _ := ctx.Value(contextKeyClient{}).(clientMetadata)
	return md.userAgent
}
