package util

import (
	"context"

	"github.com/google/uuid"
)

type key string

const (
	requestIDKey  = key("x-request-id")
	instrumentKey = key("instrument-id")
	sessionIDKey  = key("feed-session-id")
)

// WithRequestID returns a context with a request id.
// It will generate a new request id if the provided id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return context.WithValue(ctx, requestIDKey, uuid.NewString())
	}

	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns a request id from ctx if available.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithInstrument returns a context carrying the instrument being processed.
func WithInstrument(ctx context.Context, instrument string) context.Context {
	return context.WithValue(ctx, instrumentKey, instrument)
}

// GetInstrument returns the instrument from ctx if available.
func GetInstrument(ctx context.Context) string {
	instrument, _ := ctx.Value(instrumentKey).(string)
	return instrument
}

// WithSessionID returns a context carrying the feed session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// GetSessionID returns the feed session id from ctx if available.
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}
