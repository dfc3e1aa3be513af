package auth

import "github.com/golang-jwt/jwt/v5"

// ServiceTokenClaims is the JWT internal callers present to the payments API.
// Subject names the calling service.
type ServiceTokenClaims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope. Tokens without scopes grant everything.
func (c *ServiceTokenClaims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	if len(c.Scopes) == 0 {
		return true
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
