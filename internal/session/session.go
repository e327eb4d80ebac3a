// Package session models who is using the console and persists the
// backend token between runs.
package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the signed-in identity shown in the header.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// DisplayName prefers the name, falling back to the email.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

// Session is either Anonymous or Authenticated.
type Session interface {
	// BearerToken returns the token to send, or "" when anonymous.
	BearerToken() string
	isSession()
}

// Anonymous means no one is signed in; only the login form is shown.
type Anonymous struct{}

func (Anonymous) BearerToken() string { return "" }
func (Anonymous) isSession()          {}

// Authenticated holds the backend token and the user it belongs to.
type Authenticated struct {
	Token string
	User  User
	// ExpiresAt is zero when the token carries no exp claim.
	ExpiresAt time.Time
}

func (a Authenticated) BearerToken() string { return a.Token }
func (Authenticated) isSession()            {}

// Expired reports whether the token's exp claim is in the past at now.
func (a Authenticated) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// IsAuthenticated reports whether s carries a token.
func IsAuthenticated(s Session) bool {
	_, ok := s.(Authenticated)
	return ok
}

type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// fromToken builds an Authenticated session, reading exp/email/name from the
// token when it is a JWT. Signatures are not checked here; the backend does that.
func fromToken(token string, fallback User) Authenticated {
	a := Authenticated{Token: token, User: fallback}

	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return a
	}
	if claims.ExpiresAt != nil {
		a.ExpiresAt = claims.ExpiresAt.Time
	}
	if a.User.Email == "" {
		a.User.Email = claims.Email
		if a.User.Email == "" {
			a.User.Email = claims.Subject
		}
	}
	if a.User.Name == "" {
		a.User.Name = claims.Name
	}
	return a
}
