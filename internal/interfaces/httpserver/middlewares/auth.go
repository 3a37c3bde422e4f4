package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"skim-server/keys-api/internal/domain"
	"skim-server/keys-api/internal/domain/user"
	"skim-server/keys-api/internal/infrastructure/auth"
	"skim-server/keys-api/internal/interfaces/httpserver/responses"
	"skim-server/keys-api/internal/utils/platformerrors"
)

const (
	principalContextKey = "auth_principal"
	userContextKey      = "auth_user"
)

// AuthMiddleware resolves the caller to an owner record. With auth enabled
// it validates the bearer token; otherwise every request maps to the
// anonymous default owner.
func AuthMiddleware(validator *auth.Validator, users *user.Service, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *gin.Context) {
		var identity user.Identity

		if validator.Enabled() {
			token := auth.BearerToken(c.GetHeader("Authorization"))
			principal, err := validator.ValidateToken(token)
			if err != nil {
				responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "missing or invalid bearer token", "6f1f0d1e-9a42-4a5e-bb0e-0d6a9f3f5a11")
				return
			}
			c.Set(principalContextKey, *principal)
			identity = user.IdentityFromPrincipal(*principal)
		} else {
			principal := domain.Principal{
				AuthMethod: domain.AuthMethodAnonymous,
				Issuer:     user.AnonymousIssuer,
				Subject:    user.AnonymousSubject,
			}
			c.Set(principalContextKey, principal)
			identity = user.AnonymousIdentity()
		}

		owner, err := users.EnsureUser(c.Request.Context(), identity)
		if err != nil {
			log.Error().Err(err).Msg("failed to resolve owner for request")
			responses.HandleError(c, err, "failed to resolve user")
			return
		}

		c.Set(userContextKey, *owner)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := val.(domain.Principal)
	return principal, ok
}

// UserFromContext returns the resolved owner record, if any.
func UserFromContext(c *gin.Context) (user.User, bool) {
	val, ok := c.Get(userContextKey)
	if !ok {
		return user.User{}, false
	}
	owner, ok := val.(user.User)
	return owner, ok
}
