package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	keyIDKey        contextKey = "api_key_id"
	keyPrefixKey    contextKey = "key_prefix"
	apiKeyScopesKey contextKey = "api_key_scopes"
	requestLogKey   contextKey = "request_log"
)

// requestLog is filled in by inner middleware so the access log, which wraps
// them, can tell which key made a planning change.
type requestLog struct {
	keyID     uuid.UUID
	keyPrefix string
}

func withRequestLog(ctx context.Context) (context.Context, *requestLog) {
	entry := &requestLog{}
	return context.WithValue(ctx, requestLogKey, entry), entry
}

func requestLogFrom(ctx context.Context) *requestLog {
	entry, _ := ctx.Value(requestLogKey).(*requestLog)
	return entry
}

// keyAttrs returns the authenticated key as log attributes, or nil before auth.
func (e *requestLog) keyAttrs() []any {
	if e == nil || e.keyID == uuid.Nil {
		return nil
	}
	return []any{"key_id", e.keyID.String(), "key_prefix", e.keyPrefix}
}

func SetKeyID(ctx context.Context, id uuid.UUID) context.Context {
	if entry := requestLogFrom(ctx); entry != nil {
		entry.keyID = id
	}
	return context.WithValue(ctx, keyIDKey, id)
}

// GetKeyID returns the ID of the API key that authenticated r.
func GetKeyID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(keyIDKey).(uuid.UUID)
	return id, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	if entry := requestLogFrom(ctx); entry != nil {
		entry.keyPrefix = prefix
	}
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

// SetScopes stores the authenticated key's scopes in ctx.
func SetScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return scopes
}

// ExportedKeyPrefixKey returns the context key for key_prefix (for testing).
func ExportedKeyPrefixKey() contextKey {
	return keyPrefixKey
}
