package security

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/leslieo2/go-hot-content/internal/config"
	"github.com/leslieo2/go-hot-content/internal/constants"
)

// API key validation errors
var (
	ErrInvalidAPIKey  = errors.New("invalid API key")
	ErrAPIKeyDisabled = errors.New("API key is disabled")
	ErrAPIKeyExpired  = errors.New("API key has expired")
)

type APIKey struct {
	Key       string     `json:"-"`
	Name      string     `json:"name"`
	Enabled   bool       `json:"enabled"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

// AuthManager checks API keys on admin requests that change state. Read-only
// endpoints stay open so probes and scrapers need no credentials.
type AuthManager struct {
	mu     sync.RWMutex
	keys   map[string]*APIKey
	config config.AuthConfig
}

func NewAuthManager(cfg config.AuthConfig) *AuthManager {
	am := &AuthManager{
		keys:   make(map[string]*APIKey),
		config: cfg,
	}
	if am.config.HeaderName == "" {
		am.config.HeaderName = constants.HeaderAPIKey
	}
	for _, key := range cfg.Keys {
		am.keys[key.Key] = &APIKey{
			Key:       key.Key,
			Name:      key.Name,
			Enabled:   key.Enabled,
			ExpiresAt: key.ExpiresAt,
		}
	}
	return am
}

func (am *AuthManager) Enabled() bool {
	return am.config.Enabled
}

func (am *AuthManager) ValidateAPIKey(providedKey string) (*APIKey, error) {
	am.mu.Lock()
	defer am.mu.Unlock()

	// Compare against every key in constant time
	var found *APIKey
	for _, apiKey := range am.keys {
		if subtle.ConstantTimeCompare([]byte(apiKey.Key), []byte(providedKey)) == 1 {
			found = apiKey
		}
	}

	if found == nil {
		return nil, ErrInvalidAPIKey
	}
	if !found.Enabled {
		return nil, ErrAPIKeyDisabled
	}
	if found.ExpiresAt != nil && time.Now().After(*found.ExpiresAt) {
		return nil, ErrAPIKeyExpired
	}

	now := time.Now()
	found.LastUsed = &now
	copied := *found
	return &copied, nil
}

func (am *AuthManager) RevokeAPIKey(key string) error {
	am.mu.Lock()
	defer am.mu.Unlock()

	if apiKey, exists := am.keys[key]; exists {
		apiKey.Enabled = false
		return nil
	}
	return ErrInvalidAPIKey
}

// ExtractAPIKey reads the configured header, then a bearer token.
func (am *AuthManager) ExtractAPIKey(r *http.Request) string {
	if key := r.Header.Get(am.config.HeaderName); key != "" {
		return strings.TrimSpace(key)
	}
	authHeader := r.Header.Get(constants.HeaderAuthorization)
	if strings.HasPrefix(authHeader, constants.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, constants.BearerPrefix))
	}
	return ""
}

// Middleware rejects unauthenticated requests with any method other than
// GET, HEAD or OPTIONS.
func (am *AuthManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.config.Enabled || readOnly(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		key := am.ExtractAPIKey(r)
		if key == "" {
			writeAuthError(w, constants.ErrorCodeUnauthorized, "API key is required to access this endpoint")
			return
		}

		apiKey, err := am.ValidateAPIKey(key)
		if err != nil {
			code := constants.ErrorCodeInvalidAPIKey
			switch {
			case errors.Is(err, ErrAPIKeyExpired):
				code = constants.ErrorCodeAPIKeyExpired
			case errors.Is(err, ErrAPIKeyDisabled):
				code = constants.ErrorCodeAPIKeyDisabled
			}
			writeAuthError(w, code, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAPIKey(r.Context(), apiKey)))
	})
}

func readOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

type contextKey string

const apiKeyContextKey contextKey = "api_key"

func WithAPIKey(ctx context.Context, key *APIKey) context.Context {
	return context.WithValue(ctx, apiKeyContextKey, key)
}

func APIKeyFromContext(ctx context.Context) (*APIKey, bool) {
	key, ok := ctx.Value(apiKeyContextKey).(*APIKey)
	return key, ok
}
