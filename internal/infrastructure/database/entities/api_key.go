package entities

import (
	"time"

	"skim-server/keys-api/internal/domain/apikey"
)

// APIKey is the persisted form of an API key record. The plaintext secret
// is never stored, only its hash and a masked display form.
type APIKey struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	UserID     uint   `gorm:"not null;index;uniqueIndex:ux_api_keys_user_name"`
	Name       string `gorm:"type:varchar(64);not null;uniqueIndex:ux_api_keys_user_name"`
	SecretHash string `gorm:"type:varchar(128);not null;uniqueIndex:ux_api_keys_secret_hash"`
	Masked     string `gorm:"type:varchar(64);not null"`
	UsageLimit *int64
	UsageCount int64 `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EtoD converts the entity to its domain representation.
func (k *APIKey) EtoD() *apikey.APIKey {
	if k == nil {
		return nil
	}
	return &apikey.APIKey{
		ID:         k.ID,
		UserID:     k.UserID,
		Name:       k.Name,
		SecretHash: k.SecretHash,
		Masked:     k.Masked,
		UsageLimit: k.UsageLimit,
		UsageCount: k.UsageCount,
		CreatedAt:  k.CreatedAt,
		UpdatedAt:  k.UpdatedAt,
	}
}

// APIKeyFromDomain converts a domain key into an entity.
func APIKeyFromDomain(key *apikey.APIKey) *APIKey {
	if key == nil {
		return nil
	}
	return &APIKey{
		ID:         key.ID,
		UserID:     key.UserID,
		Name:       key.Name,
		SecretHash: key.SecretHash,
		Masked:     key.Masked,
		UsageLimit: key.UsageLimit,
		UsageCount: key.UsageCount,
		CreatedAt:  key.CreatedAt,
		UpdatedAt:  key.UpdatedAt,
	}
}
