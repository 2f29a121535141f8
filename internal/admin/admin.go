// Package admin issues and toggles API keys. It backs the `keys` CLI command and the
// bootstrap key seeded at start-up.
package admin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

type KeyService struct {
	store   store.CredentialStore
	keyName string
	log     zerolog.Logger
}

func NewKeyService(st store.CredentialStore, keyName string, log zerolog.Logger) *KeyService {
	return &KeyService{store: st, keyName: keyName, log: log.With().Str("component", "admin").Logger()}
}

// Issue stores an active key. An empty value generates a random one. The returned key
// carries its value so the caller can print it once.
func (s *KeyService) Issue(ctx context.Context, value string) (*models.APIKey, error) {
	if value == "" {
		generated, err := GenerateAPIKey()
		if err != nil {
			return nil, fmt.Errorf("generate api key: %w", err)
		}
		value = generated
	}

	key := &models.APIKey{KeyName: s.keyName, KeyValue: value, IsActive: true}
	if err := s.store.CreateKey(ctx, key); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	s.log.Info().Str("key_id", key.ID).Msg("api key issued")
	return key, nil
}

// Ensure issues value unless the same key already exists.
func (s *KeyService) Ensure(ctx context.Context, value string) error {
	_, err := s.Issue(ctx, value)
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	return err
}

func (s *KeyService) Disable(ctx context.Context, id string) error {
	return s.setActive(ctx, id, false)
}

func (s *KeyService) Enable(ctx context.Context, id string) error {
	return s.setActive(ctx, id, true)
}

func (s *KeyService) setActive(ctx context.Context, id string, active bool) error {
	if err := s.store.SetKeyActive(ctx, id, active); err != nil {
		return fmt.Errorf("update api key %s: %w", id, err)
	}
	s.log.Info().Str("key_id", id).Bool("active", active).Msg("api key updated")
	return nil
}

func (s *KeyService) List(ctx context.Context) ([]models.APIKey, error) {
	return s.store.ListKeys(ctx)
}

// GenerateAPIKey returns 32 random bytes, hex encoded.
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
