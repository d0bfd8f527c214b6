package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/loyalty-discount/internal/domain/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

type apiKeyCtxKey struct{}

// KeyFromContext returns the authenticated key, if any.
func KeyFromContext(ctx context.Context) (*auth.APIKeyInfo, bool) {
	k, ok := ctx.Value(apiKeyCtxKey{}).(*auth.APIKeyInfo)
	return k, ok
}

// Authenticator checks API keys against their stored HMAC-SHA256 hashes.
type Authenticator struct {
	keys   auth.Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator with the given key repository
// and HMAC pepper.
func NewAuthenticator(keys auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Authenticate resolves a plaintext API key.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	if key == "" {
		return nil, auth.ErrNotFound
	}
	hash := auth.Hash(a.pepper, key)
	info, err := a.keys.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	// The repository matched on the hash; compare again in constant time in
	// case it returned a different row.
	want, err := hex.DecodeString(hash)
	if err != nil {
		return nil, errors.Wrap(err, "decode hash")
	}
	got, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(want, got) != 1 {
		return nil, auth.ErrNotFound
	}
	return info, nil
}

// Require rejects requests without a valid key (401) or without scope (403).
func (a *Authenticator) Require(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		info, err := a.Authenticate(ctx, r.Header.Get(APIKeyHeader))
		switch {
		case errors.Is(err, auth.ErrNotFound):
			writeError(ctx, w, http.StatusUnauthorized, "unauthorized")
			return
		case err != nil:
			zctx.From(ctx).Error("Authenticate API key", zap.Error(err))
			writeError(ctx, w, http.StatusServiceUnavailable, "authentication unavailable")
			return
		}
		if !info.HasScope(scope) {
			writeError(ctx, w, http.StatusForbidden, "missing scope "+scope)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, apiKeyCtxKey{}, info)))
	})
}
