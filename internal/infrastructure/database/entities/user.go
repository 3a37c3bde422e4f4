package entities

import (
	"time"

	"skim-server/keys-api/internal/domain/user"
)

// User is the persisted owner record keyed by external identity.
type User struct {
	ID           uint    `gorm:"primaryKey"`
	AuthProvider string  `gorm:"type:varchar(50);not null;default:'oidc'"`
	Issuer       string  `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_issuer_subject"`
	Subject      string  `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_issuer_subject"`
	Username     *string `gorm:"type:varchar(150)"`
	Email        *string `gorm:"type:varchar(320)"`
	Name         *string `gorm:"type:varchar(255)"`
	Picture      *string `gorm:"type:varchar(512)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EtoD converts the entity to its domain representation.
func (u *User) EtoD() *user.User {
	if u == nil {
		return nil
	}
	return &user.User{
		ID:           u.ID,
		AuthProvider: u.AuthProvider,
		Issuer:       u.Issuer,
		Subject:      u.Subject,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		Picture:      u.Picture,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// UserFromDomain converts a domain owner into an entity.
func UserFromDomain(u *user.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:           u.ID,
		AuthProvider: u.AuthProvider,
		Issuer:       u.Issuer,
		Subject:      u.Subject,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		Picture:      u.Picture,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
