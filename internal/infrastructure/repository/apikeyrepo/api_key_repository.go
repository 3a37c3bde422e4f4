package apikeyrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"skim-server/keys-api/internal/domain/apikey"
	"skim-server/keys-api/internal/infrastructure/database/entities"
	"skim-server/keys-api/internal/utils/platformerrors"
)

type Repository struct {
	db *gorm.DB
}

var _ apikey.Repository = (*Repository)(nil)

func NewAPIKeyRepository(db *gorm.DB) apikey.Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, key *apikey.APIKey) (*apikey.APIKey, error) {
	model := entities.APIKeyFromDomain(key)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, r.classifyDuplicate(ctx, key)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create api key")
	}
	return model.EtoD(), nil
}

// classifyDuplicate decides which unique index a failed insert hit. Both
// (user_id, name) and secret_hash are unique, and gorm reports either as
// ErrDuplicatedKey.
func (r *Repository) classifyDuplicate(ctx context.Context, key *apikey.APIKey) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.APIKey{}).
		Where("user_id = ? AND name = ?", key.UserID, key.Name).
		Count(&count).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to classify duplicate api key")
	}
	if count > 0 {
		return apikey.ErrNameTaken
	}
	return apikey.ErrSecretCollision
}

func (r *Repository) ListByUser(ctx context.Context, userID uint) ([]apikey.APIKey, error) {
	var models []entities.APIKey
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list api keys")
	}
	result := make([]apikey.APIKey, 0, len(models))
	for _, m := range models {
		if domain := m.EtoD(); domain != nil {
			result = append(result, *domain)
		}
	}
	return result, nil
}

func (r *Repository) FindByID(ctx context.Context, userID uint, id string) (*apikey.APIKey, error) {
	var model entities.APIKey
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to fetch api key")
	}
	return model.EtoD(), nil
}

func (r *Repository) FindBySecretHash(ctx context.Context, hash string) (*apikey.APIKey, error) {
	var model entities.APIKey
	err := r.db.WithContext(ctx).
		Where("secret_hash = ?", hash).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to fetch api key by hash")
	}
	return model.EtoD(), nil
}

func (r *Repository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.APIKey{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to count api keys")
	}
	return count, nil
}

func (r *Repository) Update(ctx context.Context, key *apikey.APIKey) (*apikey.APIKey, error) {
	updates := map[string]any{
		"name":        key.Name,
		"usage_limit": key.UsageLimit,
	}
	result := r.db.WithContext(ctx).
		Model(&entities.APIKey{}).
		Where("id = ? AND user_id = ?", key.ID, key.UserID).
		Updates(updates)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, apikey.ErrNameTaken
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to update api key")
	}
	if result.RowsAffected == 0 {
		return nil, apikey.ErrNotFound
	}
	return r.FindByID(ctx, key.UserID, key.ID)
}

func (r *Repository) Delete(ctx context.Context, userID uint, id string) (*apikey.APIKey, error) {
	existing, err := r.FindByID(ctx, userID, id)
	if err != nil || existing == nil {
		return nil, err
	}
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entities.APIKey{})
	if result.Error != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to delete api key")
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return existing, nil
}

// IncrementUsage advances the counter with one conditional UPDATE so that
// concurrent callers can never push usage past the limit. A zero row count
// means either the key is gone or the quota check failed; a follow-up read
// tells the two apart.
func (r *Repository) IncrementUsage(ctx context.Context, userID uint, id string, delta int64) (*apikey.APIKey, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.APIKey{}).
		Where("id = ? AND user_id = ?", id, userID).
		Where("usage_limit IS NULL OR usage_count + ? <= usage_limit", delta).
		Update("usage_count", gorm.Expr("usage_count + ?", delta))
	if result.Error != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to increment api key usage")
	}

	current, err := r.FindByID(ctx, userID, id)
	if err != nil || current == nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return current, apikey.ErrQuotaExhausted
	}
	return current, nil
}

func (r *Repository) ResetUsage(ctx context.Context, userID uint, id string) (*apikey.APIKey, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.APIKey{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("usage_count", 0)
	if result.Error != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to reset api key usage")
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, userID, id)
}
