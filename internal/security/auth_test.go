package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leslieo2/go-hot-content/internal/config"
)

func newTestAuthManager(keys ...config.APIKeyConfig) *AuthManager {
	return NewAuthManager(config.AuthConfig{
		Enabled:    true,
		HeaderName: "X-API-Key",
		Keys:       keys,
	})
}

func TestAuthMiddleware_Success(t *testing.T) {
	am := newTestAuthManager(config.APIKeyConfig{Key: "secret", Name: "ci", Enabled: true})

	req := httptest.NewRequest(http.MethodPost, "/content/reload", nil)
	req.Header.Set("X-API-Key", "secret")
	rr := httptest.NewRecorder()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := APIKeyFromContext(r.Context())
		assert.True(t, ok, "API key should be in context")
		assert.Equal(t, "ci", key.Name)
		assert.NotNil(t, key.LastUsed)
		w.WriteHeader(http.StatusOK)
	})
	am.Middleware(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthMiddleware_BearerToken(t *testing.T) {
	am := newTestAuthManager(config.APIKeyConfig{Key: "secret", Enabled: true})

	req := httptest.NewRequest(http.MethodPost, "/content/reload", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()

	am.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestAuthMiddleware_Failures(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	am := newTestAuthManager(
		config.APIKeyConfig{Key: "valid", Enabled: true},
		config.APIKeyConfig{Key: "off", Enabled: false},
		config.APIKeyConfig{Key: "old", Enabled: true, ExpiresAt: &past},
	)

	tests := []struct {
		name     string
		key      string
		wantCode string
	}{
		{"missing key", "", "UNAUTHORIZED"},
		{"unknown key", "nope", "INVALID_API_KEY"},
		{"disabled key", "off", "API_KEY_DISABLED"},
		{"expired key", "old", "API_KEY_EXPIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/content/reload", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rr := httptest.NewRecorder()

			am.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			})).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantCode)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestAuthMiddleware_ReadOnlyRequestsPass(t *testing.T) {
	am := newTestAuthManager(config.APIKeyConfig{Key: "secret", Enabled: true})

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		rr := httptest.NewRecorder()
		am.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(rr, httptest.NewRequest(method, "/content", nil))
		assert.Equal(t, http.StatusOK, rr.Code, method)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	am := NewAuthManager(config.AuthConfig{Enabled: false})
	assert.False(t, am.Enabled())

	rr := httptest.NewRecorder()
	am.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/content/reload", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRevokeAPIKey(t *testing.T) {
	am := newTestAuthManager(config.APIKeyConfig{Key: "secret", Enabled: true})

	_, err := am.ValidateAPIKey("secret")
	require.NoError(t, err)

	require.NoError(t, am.RevokeAPIKey("secret"))
	_, err = am.ValidateAPIKey("secret")
	assert.ErrorIs(t, err, ErrAPIKeyDisabled)

	assert.ErrorIs(t, am.RevokeAPIKey("missing"), ErrInvalidAPIKey)
}

func TestNewAuthManager_DefaultHeader(t *testing.T) {
	am := NewAuthManager(config.AuthConfig{Enabled: true, Keys: []config.APIKeyConfig{{Key: "k", Enabled: true}}})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-API-Key", " k ")
	assert.Equal(t, "k", am.ExtractAPIKey(req))
}
