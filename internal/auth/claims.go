package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for this service.
// ClientID identifies the API client placing or ending calls; Scope gates
// what it may do. There are no refresh tokens: clients are machines and can
// re-mint.
type Claims struct {
	jwt.RegisteredClaims

	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// ScopeCallControl allows starting and ending calls.
const ScopeCallControl = "calls:control"
