package userrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skim-server/keys-api/internal/domain/user"
	"skim-server/keys-api/internal/infrastructure/database/entities"
	"skim-server/keys-api/internal/utils/platformerrors"
)

type UserGormRepository struct {
	db *gorm.DB
}

var _ user.Repository = (*UserGormRepository)(nil)

func NewUserGormRepository(db *gorm.DB) user.Repository {
	return &UserGormRepository{db: db}
}

func (repo *UserGormRepository) FindByIssuerAndSubject(ctx context.Context, issuer, subject string) (*user.User, error) {
	var entity entities.User
	err := repo.db.WithContext(ctx).
		Where("issuer = ? AND subject = ?", issuer, subject).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find user by issuer and subject")
	}
	return entity.EtoD(), nil
}

func (repo *UserGormRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var entity entities.User
	err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find user by id")
	}
	return entity.EtoD(), nil
}

// Upsert inserts the identity or refreshes its profile fields when the
// (issuer, subject) pair already exists.
func (repo *UserGormRepository) Upsert(ctx context.Context, usr *user.User) (*user.User, error) {
	entity := entities.UserFromDomain(usr)

	assignments := map[string]any{
		"auth_provider": entity.AuthProvider,
		"username":      entity.Username,
		"email":         entity.Email,
		"name":          entity.Name,
		"picture":       entity.Picture,
		"updated_at":    gorm.Expr("NOW()"),
	}

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "issuer"}, {Name: "subject"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(entity).Error; err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to upsert user")
	}

	// The upsert does not report the surviving row id on conflict, so read
	// the record back by identity.
	return repo.FindByIssuerAndSubject(ctx, usr.Issuer, usr.Subject)
}
