// Package user resolves externally authenticated identities into owner
// records that API keys hang off.
package user

import (
	"context"
	"errors"
	"time"

	"skim-server/keys-api/internal/domain"
)

// Anonymous default owner identity, used when the service runs without
// authentication. Every unauthenticated request maps to this single owner.
const (
	AnonymousIssuer  = "local"
	AnonymousSubject = "anonymous-default"
)

// User is an internal owner record keyed by the (issuer, subject) pair
// from the identity provider.
type User struct {
	ID           uint
	AuthProvider string
	Issuer       string
	Subject      string
	Username     *string
	Email        *string
	Name         *string
	Picture      *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity carries the externally asserted attributes for one login.
type Identity struct {
	Provider string
	Issuer   string
	Subject  string
	Username *string
	Email    *string
	Name     *string
	Picture  *string
}

// IdentityFromPrincipal maps a request principal onto an Identity.
func IdentityFromPrincipal(p domain.Principal) Identity {
	id := Identity{
		Provider: string(p.AuthMethod),
		Issuer:   p.Issuer,
		Subject:  p.Subject,
	}
	if p.Username != "" {
		username := p.Username
		id.Username = &username
	}
	if p.Email != "" {
		email := p.Email
		id.Email = &email
	}
	if p.Name != "" {
		name := p.Name
		id.Name = &name
	}
	if p.Picture != "" {
		picture := p.Picture
		id.Picture = &picture
	}
	return id
}

// AnonymousIdentity returns the fixed identity backing the anonymous
// default owner.
func AnonymousIdentity() Identity {
	return Identity{
		Provider: "anonymous",
		Issuer:   AnonymousIssuer,
		Subject:  AnonymousSubject,
	}
}

// Repository defines storage operations for owner records.
type Repository interface {
	FindByIssuerAndSubject(ctx context.Context, issuer, subject string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	Upsert(ctx context.Context, user *User) (*User, error)
}

// ErrInvalidIdentity indicates missing issuer or subject on the identity payload.
var ErrInvalidIdentity = errors.New("invalid identity: issuer and subject are required")

// ErrNotFound indicates no owner record exists for the lookup.
var ErrNotFound = errors.New("user not found")

// Service persists and resolves owners from external identities.
type Service struct {
	repo Repository
}

// NewService constructs a Service with required dependencies.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureUser upserts the identity and returns the internal owner record.
// Repeated calls for the same (issuer, subject) always resolve to the
// same owner.
func (s *Service) EnsureUser(ctx context.Context, identity Identity) (*User, error) {
	if identity.Issuer == "" || identity.Subject == "" {
		return nil, ErrInvalidIdentity
	}

	authProvider := identity.Provider
	if authProvider == "" {
		authProvider = "oidc"
	}

	user := &User{
		AuthProvider: authProvider,
		Issuer:       identity.Issuer,
		Subject:      identity.Subject,
		Username:     identity.Username,
		Email:        identity.Email,
		Name:         identity.Name,
		Picture:      identity.Picture,
	}

	return s.repo.Upsert(ctx, user)
}

// GetUser returns the owner record for the given internal id.
func (s *Service) GetUser(ctx context.Context, id uint) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}
