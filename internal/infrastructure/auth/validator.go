// Package auth validates bearer tokens against the configured OIDC
// provider's JWKS endpoint.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"skim-server/keys-api/internal/config"
	"skim-server/keys-api/internal/domain"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Validator verifies JWTs using keys fetched from the provider's JWKS.
type Validator struct {
	cfg    *config.Config
	logger zerolog.Logger
	jwks   *keyfunc.JWKS
}

// NewValidator starts JWKS fetching when auth is enabled. The returned
// validator is inert when auth is disabled.
func NewValidator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Validator, error) {
	logger = logger.With().Str("component", "auth_validator").Logger()

	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, logger: logger}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   cfg.RefreshJWKSInterval,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{cfg: cfg, logger: logger, jwks: jwks}, nil
}

// Enabled reports whether token validation is active.
func (v *Validator) Enabled() bool {
	return v != nil && v.cfg.AuthEnabled
}

// Ready indicates if the validator can verify tokens.
func (v *Validator) Ready() bool {
	if !v.Enabled() {
		return true
	}
	return v.jwks != nil
}

// ValidateToken verifies the raw bearer token and returns the principal
// it asserts.
func (v *Validator) ValidateToken(tokenString string) (*domain.Principal, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if audience := strings.TrimSpace(v.cfg.Audience); audience != "" {
		if !audienceMatches(claims["aud"], audience) {
			return nil, ErrInvalidToken
		}
	}

	subject, _ := claims["sub"].(string)
	issuer, _ := claims["iss"].(string)
	if subject == "" || issuer == "" {
		return nil, ErrInvalidToken
	}

	principal := &domain.Principal{
		AuthMethod: domain.AuthMethodJWT,
		Subject:    subject,
		Issuer:     issuer,
	}
	principal.Username, _ = claims["preferred_username"].(string)
	principal.Email, _ = claims["email"].(string)
	principal.Name, _ = claims["name"].(string)
	principal.Picture, _ = claims["picture"].(string)
	if scope, ok := claims["scope"].(string); ok && scope != "" {
		principal.Scopes = strings.Fields(scope)
	}

	return principal, nil
}

func audienceMatches(claim any, audience string) bool {
	switch aud := claim.(type) {
	case nil:
		// Tokens without an aud claim pass; providers differ here.
		return true
	case string:
		return aud == audience
	case []any:
		for _, entry := range aud {
			if s, ok := entry.(string); ok && s == audience {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
