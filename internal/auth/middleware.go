package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/models"
)

// HeaderAPIKey carries the caller credential on every gateway request.
const HeaderAPIKey = "x-genspark-api-key"

var (
	ErrUnknownKey   = errors.New("no active key matches")
	ErrAmbiguousKey = errors.New("more than one active key matches")
)

type contextKey string

const KeyContextKey contextKey = "api_key"

type KeyFinder interface {
	FindActiveKeys(ctx context.Context, keyName, keyValue string) ([]models.APIKey, error)
}

type Authenticator struct {
	finder  KeyFinder
	keyName string
}

func NewAuthenticator(finder KeyFinder, keyName string) *Authenticator {
	return &Authenticator{finder: finder, keyName: keyName}
}

// FromRequest returns the trimmed API key header value.
func FromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderAPIKey))
}

// Authenticate accepts the key only when exactly one active row with the configured key name
// matches it. Lookup failures are reported as invalid credentials.
func (a *Authenticator) Authenticate(ctx context.Context, value string) (*models.APIKey, error) {
	if value == "" {
		return nil, apperr.MissingCredential()
	}

	keys, err := a.finder.FindActiveKeys(ctx, a.keyName, value)
	if err != nil {
		return nil, apperr.InvalidCredential(err)
	}
	switch len(keys) {
	case 0:
		return nil, apperr.InvalidCredential(ErrUnknownKey)
	case 1:
		return &keys[0], nil
	default:
		return nil, apperr.InvalidCredential(ErrAmbiguousKey)
	}
}

func WithKey(ctx context.Context, key *models.APIKey) context.Context {
	return context.WithValue(ctx, KeyContextKey, key)
}

func KeyFromContext(ctx context.Context) (*models.APIKey, bool) {
	key, ok := ctx.Value(KeyContextKey).(*models.APIKey)
	return key, ok
}
