package domain

import "time"

// Session binds a bearer token to a user until ExpiresAt. Deleting the row
// revokes the token even when its signature is still valid.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IssuedToken is a freshly minted bearer token.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenClaims is the identity recovered from a verified token.
type TokenClaims struct {
	UserID    string
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID    string
	Email     string
	SessionID string
}

// LoginResult is returned on successful authentication with credentials.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}
