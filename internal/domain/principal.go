package domain

// AuthMethod describes how a caller authenticated with the API.
type AuthMethod string

const (
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Principal captures normalized caller identity independent of auth mechanism.
type Principal struct {
	AuthMethod AuthMethod
	Subject    string
	Issuer     string
	Username   string
	Email      string
	Name       string
	Picture    string
	Scopes     []string
}

// HasScope checks if the principal possesses a scope.
func (p Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
