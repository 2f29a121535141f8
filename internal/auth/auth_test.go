package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store/memory"
)

const keyName = "GENSPARK_API_KEY"

type failingFinder struct{}

func (failingFinder) FindActiveKeys(ctx context.Context, keyName, keyValue string) ([]models.APIKey, error) {
	return nil, errors.New("connection refused")
}

type dupFinder struct{}

func (dupFinder) FindActiveKeys(ctx context.Context, keyName, keyValue string) ([]models.APIKey, error) {
	return []models.APIKey{{ID: "1"}, {ID: "2"}}, nil
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.CreateKey(ctx, &models.APIKey{KeyName: keyName, KeyValue: "good", IsActive: true}))
	require.NoError(t, st.CreateKey(ctx, &models.APIKey{KeyName: keyName, KeyValue: "disabled", IsActive: false}))
	require.NoError(t, st.CreateKey(ctx, &models.APIKey{KeyName: "OTHER_KEY", KeyValue: "other", IsActive: true}))

	a := NewAuthenticator(st, keyName)

	tests := []struct {
		name string
		key  string
		kind apperr.Kind
	}{
		{"missing", "", apperr.KindMissingCredential},
		{"unknown", "nope", apperr.KindInvalidCredential},
		{"inactive", "disabled", apperr.KindInvalidCredential},
		{"wrong key name", "other", apperr.KindInvalidCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(ctx, tt.key)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, tt.kind), err.Error())
		})
	}

	key, err := a.Authenticate(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, keyName, key.KeyName)
}

func TestAuthenticate_LookupErrorAndAmbiguity(t *testing.T) {
	_, err := NewAuthenticator(failingFinder{}, keyName).Authenticate(context.Background(), "k")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidCredential))

	_, err = NewAuthenticator(dupFinder{}, keyName).Authenticate(context.Background(), "k")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidCredential))
	assert.ErrorIs(t, err, ErrAmbiguousKey)
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Genspark-Api-Key", "  abc ")
	assert.Equal(t, "abc", FromRequest(r))
}

func TestKeyContext(t *testing.T) {
	_, ok := KeyFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithKey(context.Background(), &models.APIKey{ID: "k1"})
	key, ok := KeyFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "k1", key.ID)
}

func TestReceiptSigner_RoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewReceiptSigner("secret", time.Hour).WithClock(func() time.Time { return now })

	id, token, err := s.Sign(ReceiptClaims{Integration: "mailchimp", Target: "list-1", Items: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.ID)
	assert.Equal(t, "mailchimp", claims.Integration)
	assert.Equal(t, "list-1", claims.Target)
	assert.Equal(t, 3, claims.Items)
}

func TestReceiptSigner_Rejects(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewReceiptSigner("secret", time.Hour).WithClock(func() time.Time { return now })
	_, token, err := s.Sign(ReceiptClaims{Integration: "social"})
	require.NoError(t, err)

	_, err = NewReceiptSigner("other", time.Hour).WithClock(func() time.Time { return now }).Verify(token)
	assert.Error(t, err)

	later := NewReceiptSigner("secret", time.Hour).WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = later.Verify(token)
	assert.Error(t, err)
}
