package apikey_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"skim-server/keys-api/internal/domain/apikey"
)

// memoryRepository is an in-memory Repository whose IncrementUsage performs
// the check-and-set under a single lock, mirroring the conditional UPDATE
// the real store issues.
type memoryRepository struct {
	mu   sync.Mutex
	keys map[string]*apikey.APIKey
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{keys: make(map[string]*apikey.APIKey)}
}

func (m *memoryRepository) Create(ctx context.Context, key *apikey.APIKey) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.keys {
		if existing.UserID == key.UserID && existing.Name == key.Name {
			return nil, apikey.ErrNameTaken
		}
		if existing.SecretHash == key.SecretHash {
			return nil, apikey.ErrSecretCollision
		}
	}
	now := time.Now().UTC()
	stored := *key
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.keys[key.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *memoryRepository) ListByUser(ctx context.Context, userID uint) ([]apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []apikey.APIKey
	for _, key := range m.keys {
		if key.UserID == userID {
			out = append(out, *key)
		}
	}
	return out, nil
}

func (m *memoryRepository) FindByID(ctx context.Context, userID uint, id string) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[id]
	if !ok || key.UserID != userID {
		return nil, nil
	}
	copied := *key
	return &copied, nil
}

func (m *memoryRepository) FindBySecretHash(ctx context.Context, hash string) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.keys {
		if key.SecretHash == hash {
			copied := *key
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, key := range m.keys {
		if key.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepository) Update(ctx context.Context, key *apikey.APIKey) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.keys[key.ID]
	if !ok || existing.UserID != key.UserID {
		return nil, apikey.ErrNotFound
	}
	for _, other := range m.keys {
		if other.ID != key.ID && other.UserID == key.UserID && other.Name == key.Name {
			return nil, apikey.ErrNameTaken
		}
	}
	existing.Name = key.Name
	existing.UsageLimit = key.UsageLimit
	existing.UpdatedAt = time.Now().UTC()
	copied := *existing
	return &copied, nil
}

func (m *memoryRepository) Delete(ctx context.Context, userID uint, id string) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[id]
	if !ok || key.UserID != userID {
		return nil, nil
	}
	delete(m.keys, id)
	copied := *key
	return &copied, nil
}

func (m *memoryRepository) IncrementUsage(ctx context.Context, userID uint, id string, delta int64) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[id]
	if !ok || key.UserID != userID {
		return nil, nil
	}
	if key.UsageLimit != nil && key.UsageCount+delta > *key.UsageLimit {
		copied := *key
		return &copied, apikey.ErrQuotaExhausted
	}
	key.UsageCount += delta
	key.UpdatedAt = time.Now().UTC()
	copied := *key
	return &copied, nil
}

func (m *memoryRepository) ResetUsage(ctx context.Context, userID uint, id string) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[id]
	if !ok || key.UserID != userID {
		return nil, nil
	}
	key.UsageCount = 0
	key.UpdatedAt = time.Now().UTC()
	copied := *key
	return &copied, nil
}

func newTestService(repo apikey.Repository) *apikey.Service {
	return apikey.NewService(repo, apikey.Config{KeyPrefix: "ak"}, zerolog.Nop())
}

func limitOf(n int64) *int64 { return &n }

func TestCreateKey(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, secret, err := svc.CreateKey(ctx, 1, "  prod  ", limitOf(5))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if key.Name != "prod" {
		t.Errorf("name = %q, want trimmed %q", key.Name, "prod")
	}
	if key.UsageCount != 0 {
		t.Errorf("usage count = %d, want 0", key.UsageCount)
	}
	if key.UsageLimit == nil || *key.UsageLimit != 5 {
		t.Errorf("usage limit = %v, want 5", key.UsageLimit)
	}

	// ak_ + 32 hex chars (128 bits)
	if !strings.HasPrefix(secret, "ak_") {
		t.Errorf("secret = %q, want prefix ak_", secret)
	}
	if len(secret) != len("ak_")+32 {
		t.Errorf("secret length = %d, want %d", len(secret), len("ak_")+32)
	}
	for _, c := range secret[len("ak_"):] {
		if !((c >= 'a' && c <= 'f') || (c >= '0' && c <= '9')) {
			t.Fatalf("secret contains non-hex character %c", c)
		}
	}

	// The record never carries the plaintext, only a mask.
	if key.SecretHash == secret {
		t.Error("record stores the plaintext secret")
	}
	if !strings.HasSuffix(key.Masked, secret[len(secret)-4:]) {
		t.Errorf("masked = %q, want suffix %q", key.Masked, secret[len(secret)-4:])
	}
	if strings.Contains(key.Masked, secret[len("ak_"):len(secret)-4]) {
		t.Error("masked form leaks the secret body")
	}

	// Retrievable by the issued secret.
	result, err := svc.Validate(ctx, secret, 1)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !result.Valid || result.Key.ID != key.ID {
		t.Errorf("Validate() = %+v, want valid result for %s", result, key.ID)
	}
}

func TestCreateKeyValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		keyName string
		limit   *int64
		wantErr error
	}{
		{name: "name too short", keyName: "a", wantErr: apikey.ErrInvalidName},
		{name: "name too long", keyName: strings.Repeat("x", 51), wantErr: apikey.ErrInvalidName},
		{name: "whitespace only name", keyName: "   ", wantErr: apikey.ErrInvalidName},
		{name: "limit too large", keyName: "prod", limit: limitOf(1_000_001), wantErr: apikey.ErrInvalidLimit},
		{name: "two characters ok", keyName: "ok"},
		{name: "fifty characters ok", keyName: strings.Repeat("x", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMemoryRepository())
			_, _, err := svc.CreateKey(ctx, 1, tt.keyName, tt.limit)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateKeyZeroLimitMeansUnlimited(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, _, err := svc.CreateKey(ctx, 1, "prod", limitOf(0))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if key.UsageLimit != nil {
		t.Errorf("usage limit = %v, want nil (unlimited)", *key.UsageLimit)
	}

	key, _, err = svc.CreateKey(ctx, 1, "staging", limitOf(-3))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if key.UsageLimit != nil {
		t.Errorf("usage limit = %v, want nil for negative input", *key.UsageLimit)
	}
}

func TestNameUniquenessPerOwner(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	if _, _, err := svc.CreateKey(ctx, 1, "prod", nil); err != nil {
		t.Fatalf("first CreateKey() error = %v", err)
	}
	if _, _, err := svc.CreateKey(ctx, 1, "prod", nil); !errors.Is(err, apikey.ErrNameTaken) {
		t.Errorf("duplicate name error = %v, want ErrNameTaken", err)
	}
	// Same name for a different owner is fine.
	if _, _, err := svc.CreateKey(ctx, 2, "prod", nil); err != nil {
		t.Errorf("cross-owner same name error = %v, want nil", err)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, secret, err := svc.CreateKey(ctx, 1, "prod", limitOf(10))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}

	if _, err := svc.GetKey(ctx, 2, key.ID); !errors.Is(err, apikey.ErrNotFound) {
		t.Errorf("GetKey as other owner error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Validate(ctx, secret, 2); !errors.Is(err, apikey.ErrNotFound) {
		t.Errorf("Validate as other owner error = %v, want ErrNotFound", err)
	}
	if _, err := svc.IncrementUsage(ctx, 2, key.ID, 1); !errors.Is(err, apikey.ErrNotFound) {
		t.Errorf("IncrementUsage as other owner error = %v, want ErrNotFound", err)
	}
	if _, err := svc.ResetUsage(ctx, 2, key.ID); !errors.Is(err, apikey.ErrNotFound) {
		t.Errorf("ResetUsage as other owner error = %v, want ErrNotFound", err)
	}
	if _, err := svc.DeleteKey(ctx, 2, key.ID); !errors.Is(err, apikey.ErrNotFound) {
		t.Errorf("DeleteKey as other owner error = %v, want ErrNotFound", err)
	}
	name := "stolen"
	if _, err := svc.UpdateKey(ctx, 2, key.ID, apikey.UpdateParams{Name: &name}); !errors.Is(err, apikey.ErrNotFound) {
		t.Errorf("UpdateKey as other owner error = %v, want ErrNotFound", err)
	}

	keys, err := svc.ListKeys(ctx, 2)
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("ListKeys for other owner returned %d keys, want 0", len(keys))
	}

	// The rightful owner still sees an untouched key.
	got, err := svc.GetKey(ctx, 1, key.ID)
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if got.UsageCount != 0 {
		t.Errorf("usage count = %d after cross-owner attempts, want 0", got.UsageCount)
	}
}

func TestValidateDoesNotAdvanceUsage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, secret, err := svc.CreateKey(ctx, 1, "prod", limitOf(3))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := svc.Validate(ctx, secret, 1); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
	}

	got, err := svc.GetKey(ctx, 1, key.ID)
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if got.UsageCount != 0 {
		t.Errorf("usage count = %d after validations, want 0", got.UsageCount)
	}
}

func TestValidateExhaustedKey(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, secret, err := svc.CreateKey(ctx, 1, "prod", limitOf(2))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if _, err := svc.IncrementUsage(ctx, 1, key.ID, 2); err != nil {
		t.Fatalf("IncrementUsage() error = %v", err)
	}

	result, err := svc.Validate(ctx, secret, 1)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.Valid {
		t.Error("exhausted key reported valid")
	}
	if result.Reason != apikey.ReasonLimitExceeded {
		t.Errorf("reason = %q, want %q", result.Reason, apikey.ReasonLimitExceeded)
	}
	if result.Key.UsageCount != 2 || *result.Key.UsageLimit != 2 {
		t.Errorf("diagnostic count/limit = %d/%d, want 2/2", result.Key.UsageCount, *result.Key.UsageLimit)
	}
}

func TestIncrementUsageBoundary(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, _, err := svc.CreateKey(ctx, 1, "prod", limitOf(10))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}

	// Limit is inclusive: hitting it exactly succeeds.
	got, err := svc.IncrementUsage(ctx, 1, key.ID, 10)
	if err != nil {
		t.Fatalf("IncrementUsage to limit error = %v", err)
	}
	if got.UsageCount != 10 {
		t.Errorf("usage count = %d, want 10", got.UsageCount)
	}

	// One past the limit is rejected without mutation.
	_, err = svc.IncrementUsage(ctx, 1, key.ID, 1)
	var quota *apikey.QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("over-limit error = %v, want QuotaExceededError", err)
	}
	if quota.Current != 10 || quota.Limit != 10 || quota.Remaining != 0 {
		t.Errorf("quota payload = %+v, want current 10, limit 10, remaining 0", quota)
	}

	got, err = svc.GetKey(ctx, 1, key.ID)
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if got.UsageCount != 10 {
		t.Errorf("usage count after rejection = %d, want 10", got.UsageCount)
	}
}

func TestIncrementUsageDeltaValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, _, err := svc.CreateKey(ctx, 1, "prod", nil)
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}

	for _, delta := range []int64{0, -1, 1001} {
		if _, err := svc.IncrementUsage(ctx, 1, key.ID, delta); !errors.Is(err, apikey.ErrInvalidDelta) {
			t.Errorf("IncrementUsage(delta=%d) error = %v, want ErrInvalidDelta", delta, err)
		}
	}
}

func TestUnlimitedKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, _, err := svc.CreateKey(ctx, 1, "prod", nil)
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}

	for i := 0; i < 1000; i++ {
		if _, err := svc.IncrementUsage(ctx, 1, key.ID, 1); err != nil {
			t.Fatalf("increment %d error = %v", i+1, err)
		}
	}

	got, err := svc.GetKey(ctx, 1, key.ID)
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if got.UsageCount != 1000 {
		t.Errorf("usage count = %d, want 1000", got.UsageCount)
	}
	if got.Remaining() != -1 {
		t.Errorf("Remaining() = %d, want -1 for unlimited", got.Remaining())
	}
}

func TestResetUsageIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, _, err := svc.CreateKey(ctx, 1, "prod", limitOf(5))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if _, err := svc.IncrementUsage(ctx, 1, key.ID, 3); err != nil {
		t.Fatalf("IncrementUsage() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := svc.ResetUsage(ctx, 1, key.ID)
		if err != nil {
			t.Fatalf("ResetUsage() call %d error = %v", i+1, err)
		}
		if got.UsageCount != 0 {
			t.Errorf("usage count after reset %d = %d, want 0", i+1, got.UsageCount)
		}
	}
}

// TestConcurrentIncrementsHonorQuota is the load-bearing correctness test:
// 20 concurrent single increments against a limit of 10 must yield exactly
// 10 successes and a final counter of exactly 10, never more.
func TestConcurrentIncrementsHonorQuota(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, _, err := svc.CreateKey(ctx, 1, "prod", limitOf(10))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}

	const callers = 20
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IncrementUsage(ctx, 1, key.ID, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			var quota *apikey.QuotaExceededError
			if !errors.As(err, &quota) {
				t.Fatalf("unexpected error under contention: %v", err)
			}
			rejected++
		}
	}

	if succeeded != 10 || rejected != 10 {
		t.Errorf("succeeded = %d, rejected = %d, want 10/10", succeeded, rejected)
	}

	got, err := svc.GetKey(ctx, 1, key.ID)
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if got.UsageCount != 10 {
		t.Errorf("final usage count = %d, want exactly 10", got.UsageCount)
	}
}

func TestUpdateKey(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, _, err := svc.CreateKey(ctx, 1, "prod", limitOf(5))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if _, _, err := svc.CreateKey(ctx, 1, "staging", nil); err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}

	name := "production"
	updated, err := svc.UpdateKey(ctx, 1, key.ID, apikey.UpdateParams{Name: &name, UsageLimit: limitOf(100)})
	if err != nil {
		t.Fatalf("UpdateKey() error = %v", err)
	}
	if updated.Name != "production" || updated.UsageLimit == nil || *updated.UsageLimit != 100 {
		t.Errorf("updated = %+v, want renamed with limit 100", updated)
	}

	// Renaming onto a sibling's name conflicts.
	taken := "staging"
	if _, err := svc.UpdateKey(ctx, 1, key.ID, apikey.UpdateParams{Name: &taken}); !errors.Is(err, apikey.ErrNameTaken) {
		t.Errorf("rename onto taken name error = %v, want ErrNameTaken", err)
	}

	// Clearing the limit with zero.
	updated, err = svc.UpdateKey(ctx, 1, key.ID, apikey.UpdateParams{UsageLimit: limitOf(0)})
	if err != nil {
		t.Fatalf("UpdateKey() error = %v", err)
	}
	if updated.UsageLimit != nil {
		t.Errorf("usage limit = %v, want nil after clearing", *updated.UsageLimit)
	}
}

func TestMaxKeysPerUser(t *testing.T) {
	ctx := context.Background()
	svc := apikey.NewService(newMemoryRepository(), apikey.Config{KeyPrefix: "ak", MaxPerUser: 2}, zerolog.Nop())

	if _, _, err := svc.CreateKey(ctx, 1, "one", nil); err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if _, _, err := svc.CreateKey(ctx, 1, "two", nil); err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if _, _, err := svc.CreateKey(ctx, 1, "three", nil); !errors.Is(err, apikey.ErrKeyLimitReached) {
		t.Errorf("third key error = %v, want ErrKeyLimitReached", err)
	}
	// A different user is unaffected.
	if _, _, err := svc.CreateKey(ctx, 2, "one", nil); err != nil {
		t.Errorf("other user CreateKey() error = %v", err)
	}
}

// TestLifecycleScenario walks the end-to-end example: limit 5, five
// increments, a rejected sixth, a reset, then a successful seventh.
func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository())

	key, _, err := svc.CreateKey(ctx, 1, "prod", limitOf(5))
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if key.UsageCount != 0 || *key.UsageLimit != 5 {
		t.Fatalf("fresh key = count %d limit %v, want 0/5", key.UsageCount, *key.UsageLimit)
	}

	for want := int64(1); want <= 5; want++ {
		got, err := svc.IncrementUsage(ctx, 1, key.ID, 1)
		if err != nil {
			t.Fatalf("increment %d error = %v", want, err)
		}
		if got.UsageCount != want {
			t.Errorf("increment %d returned count %d", want, got.UsageCount)
		}
	}

	_, err = svc.IncrementUsage(ctx, 1, key.ID, 1)
	var quota *apikey.QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("sixth increment error = %v, want QuotaExceededError", err)
	}
	if quota.Current != 5 || quota.Limit != 5 || quota.Remaining != 0 {
		t.Errorf("quota payload = %+v, want {5 5 0}", quota)
	}

	reset, err := svc.ResetUsage(ctx, 1, key.ID)
	if err != nil {
		t.Fatalf("ResetUsage() error = %v", err)
	}
	if reset.UsageCount != 0 {
		t.Errorf("count after reset = %d, want 0", reset.UsageCount)
	}

	got, err := svc.IncrementUsage(ctx, 1, key.ID, 1)
	if err != nil {
		t.Fatalf("increment after reset error = %v", err)
	}
	if got.UsageCount != 1 {
		t.Errorf("count after post-reset increment = %d, want 1", got.UsageCount)
	}
}
