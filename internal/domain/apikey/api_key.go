package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// APIKey represents persistent metadata for an API key. The plaintext secret
// is never stored; only its hash and a masked display form are kept.
type APIKey struct {
	ID         string
	UserID     uint
	Name       string
	SecretHash string
	Masked     string
	UsageLimit *int64
	UsageCount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Exhausted reports whether the key has consumed its entire usage allowance.
func (k *APIKey) Exhausted() bool {
	return k.UsageLimit != nil && k.UsageCount >= *k.UsageLimit
}

// Remaining returns the number of uses left, or -1 for unlimited keys.
func (k *APIKey) Remaining() int64 {
	if k.UsageLimit == nil {
		return -1
	}
	if rem := *k.UsageLimit - k.UsageCount; rem > 0 {
		return rem
	}
	return 0
}

// UpdateParams carries the mutable fields for an existing key. Nil means
// leave unchanged; a UsageLimit <= 0 clears the limit (unlimited).
type UpdateParams struct {
	Name       *string
	UsageLimit *int64
}

// ErrNotFound indicates the key does not exist or does not belong to the
// caller. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("api key not found")

// ErrNameTaken indicates the owner already has a live key with that name.
var ErrNameTaken = errors.New("api key name already in use")

// ErrSecretCollision indicates a generated secret hash already exists. This
// is a fatal generation failure, never retried.
var ErrSecretCollision = errors.New("api key secret collision")

// ErrKeyLimitReached indicates the user hit the maximum number of keys.
var ErrKeyLimitReached = errors.New("api key limit reached")

// ErrQuotaExhausted is the storage-level signal that a conditional usage
// update matched a live row but the increment would exceed its limit.
var ErrQuotaExhausted = errors.New("usage quota exhausted")

// Validation failures surfaced to callers as 400s.
var (
	ErrInvalidName   = errors.New("name must be between 2 and 50 characters")
	ErrInvalidLimit  = errors.New("usage limit must be between 1 and 1000000")
	ErrInvalidDelta  = errors.New("increment must be between 1 and 1000")
	ErrInvalidSecret = errors.New("api key value is required")
)

// QuotaExceededError rejects a usage increment that would push the counter
// past the limit. Carries enough detail for the caller to render a
// retry-after-reset message.
type QuotaExceededError struct {
	Current   int64
	Limit     int64
	Remaining int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("usage limit exceeded: %d of %d used, %d remaining", e.Current, e.Limit, e.Remaining)
}

// ValidationResult is the outcome of checking a presented secret.
type ValidationResult struct {
	Valid  bool
	Reason string
	Key    *APIKey
}

// ReasonLimitExceeded marks a known key whose allowance is spent.
const ReasonLimitExceeded = "limit_exceeded"

// Repository defines storage operations for API keys. Find methods scoped by
// userID return (nil, nil) when no row matches, so missing and not-owned
// rows are indistinguishable to callers.
type Repository interface {
	Create(ctx context.Context, key *APIKey) (*APIKey, error)
	ListByUser(ctx context.Context, userID uint) ([]APIKey, error)
	FindByID(ctx context.Context, userID uint, id string) (*APIKey, error)
	FindBySecretHash(ctx context.Context, hash string) (*APIKey, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	Update(ctx context.Context, key *APIKey) (*APIKey, error)
	Delete(ctx context.Context, userID uint, id string) (*APIKey, error)

	// IncrementUsage advances the usage counter by delta as a single atomic
	// conditional update. It returns ErrQuotaExhausted together with the
	// current record when the increment would exceed the limit, and
	// (nil, nil) when no row matches.
	IncrementUsage(ctx context.Context, userID uint, id string, delta int64) (*APIKey, error)
	ResetUsage(ctx context.Context, userID uint, id string) (*APIKey, error)
}
