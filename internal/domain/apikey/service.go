package apikey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"skim-server/keys-api/internal/utils/idgen"
)

const (
	minNameLength = 2
	maxNameLength = 50
	maxUsageLimit = 1_000_000
	maxDelta      = 1000

	secretEntropyBytes = 16 // 128 bits
)

// Service orchestrates API key lifecycle and usage accounting.
type Service struct {
	repo       Repository
	logger     zerolog.Logger
	keyPrefix  string
	maxPerUser int
}

// Config configures the Service.
type Config struct {
	KeyPrefix  string
	MaxPerUser int
}

// NewService constructs an API key service.
func NewService(repo Repository, cfg Config, logger zerolog.Logger) *Service {
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = "ak"
	}
	return &Service{
		repo:       repo,
		logger:     logger.With().Str("component", "api-key-service").Logger(),
		keyPrefix:  prefix,
		maxPerUser: cfg.MaxPerUser,
	}
}

// CreateKey generates a new API key for the given user and persists its
// metadata. The plaintext secret is returned exactly once, here; every later
// read only sees the masked form.
func (s *Service) CreateKey(ctx context.Context, userID uint, name string, usageLimit *int64) (*APIKey, string, error) {
	name = strings.TrimSpace(name)
	if len(name) < minNameLength || len(name) > maxNameLength {
		return nil, "", ErrInvalidName
	}

	limit, err := normalizeLimit(usageLimit)
	if err != nil {
		return nil, "", err
	}

	if s.maxPerUser > 0 {
		count, err := s.repo.CountByUser(ctx, userID)
		if err != nil {
			return nil, "", err
		}
		if count >= int64(s.maxPerUser) {
			return nil, "", ErrKeyLimitReached
		}
	}

	secret, err := idgen.GenerateSecret(s.keyPrefix, secretEntropyBytes)
	if err != nil {
		return nil, "", err
	}

	record := &APIKey{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		SecretHash: hashSecret(secret),
		Masked:     maskSecret(s.keyPrefix, secret),
		UsageLimit: limit,
		UsageCount: 0,
	}

	persisted, err := s.repo.Create(ctx, record)
	if err != nil {
		if errors.Is(err, ErrSecretCollision) {
			// A 128-bit collision means something is badly wrong with the
			// entropy source. Fail loudly instead of retrying.
			s.logger.Error().Str("key_id", record.ID).Msg("secret hash collision on create")
		}
		return nil, "", err
	}

	s.logger.Info().
		Str("key_id", persisted.ID).
		Uint("user_id", userID).
		Str("name", name).
		Msg("api key created")

	return persisted, secret, nil
}

// ListKeys returns the user's API keys, newest first.
func (s *Service) ListKeys(ctx context.Context, userID uint) ([]APIKey, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetKey returns a single key owned by the user.
func (s *Service) GetKey(ctx context.Context, userID uint, keyID string) (*APIKey, error) {
	key, err := s.repo.FindByID(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrNotFound
	}
	return key, nil
}

// UpdateKey renames a key and/or changes its usage limit. A limit <= 0
// clears the ceiling (unlimited).
func (s *Service) UpdateKey(ctx context.Context, userID uint, keyID string, params UpdateParams) (*APIKey, error) {
	key, err := s.GetKey(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if len(name) < minNameLength || len(name) > maxNameLength {
			return nil, ErrInvalidName
		}
		key.Name = name
	}
	if params.UsageLimit != nil {
		limit, err := normalizeLimit(params.UsageLimit)
		if err != nil {
			return nil, err
		}
		key.UsageLimit = limit
	}

	return s.repo.Update(ctx, key)
}

// DeleteKey removes the key and returns the deleted record.
func (s *Service) DeleteKey(ctx context.Context, userID uint, keyID string) (*APIKey, error) {
	deleted, err := s.repo.Delete(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, ErrNotFound
	}

	s.logger.Info().
		Str("key_id", deleted.ID).
		Uint("user_id", userID).
		Msg("api key deleted")

	return deleted, nil
}

// Validate checks a presented secret. It is a pure read: it never advances
// the usage counter. Callers that want validate-and-charge compose this with
// IncrementUsage explicitly.
//
// When ownerID is non-zero the key must belong to that owner; a mismatch is
// reported exactly like an unknown secret so key existence never leaks
// across owners.
func (s *Service) Validate(ctx context.Context, secret string, ownerID uint) (*ValidationResult, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrInvalidSecret
	}

	key, err := s.repo.FindBySecretHash(ctx, hashSecret(secret))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrNotFound
	}
	if ownerID != 0 && key.UserID != ownerID {
		return nil, ErrNotFound
	}

	if key.Exhausted() {
		return &ValidationResult{Valid: false, Reason: ReasonLimitExceeded, Key: key}, nil
	}
	return &ValidationResult{Valid: true, Key: key}, nil
}

// IncrementUsage atomically advances the usage counter by delta, rejecting
// the whole increment when it would push the counter past the limit. The
// limit itself is inclusive: count+delta == limit succeeds.
func (s *Service) IncrementUsage(ctx context.Context, userID uint, keyID string, delta int64) (*APIKey, error) {
	if delta < 1 || delta > maxDelta {
		return nil, ErrInvalidDelta
	}

	key, err := s.repo.IncrementUsage(ctx, userID, keyID, delta)
	if errors.Is(err, ErrQuotaExhausted) {
		quota := &QuotaExceededError{Current: key.UsageCount, Remaining: key.Remaining()}
		if key.UsageLimit != nil {
			quota.Limit = *key.UsageLimit
		}
		return nil, quota
	}
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrNotFound
	}
	return key, nil
}

// ResetUsage unconditionally sets the usage counter back to zero. Idempotent.
func (s *Service) ResetUsage(ctx context.Context, userID uint, keyID string) (*APIKey, error) {
	key, err := s.repo.ResetUsage(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrNotFound
	}

	s.logger.Info().
		Str("key_id", key.ID).
		Uint("user_id", userID).
		Msg("api key usage reset")

	return key, nil
}

func normalizeLimit(limit *int64) (*int64, error) {
	if limit == nil {
		return nil, nil
	}
	// Zero or negative means unlimited, matching the create contract.
	if *limit <= 0 {
		return nil, nil
	}
	if *limit > maxUsageLimit {
		return nil, ErrInvalidLimit
	}
	value := *limit
	return &value, nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func maskSecret(prefix, secret string) string {
	suffix := ""
	if len(secret) >= 4 {
		suffix = secret[len(secret)-4:]
	}
	return prefix + "_****" + suffix
}

// HashSecret exposes the canonical secret hashing for storage lookups.
func HashSecret(secret string) string {
	return hashSecret(secret)
}
