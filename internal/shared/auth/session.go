package auth

import (
	"context"
	"errors"

	"doctext-backend/internal/shared/telemetry"
)

// ErrRevoked is returned for tokens whose session was logged out.
var ErrRevoked = errors.New("session revoked")

// Sessions issues, validates and revokes session tokens.
type Sessions struct {
	Issuer  *Issuer
	Revoker Revoker
}

// NewSessions pairs an issuer with a revocation store.
func NewSessions(issuer *Issuer, revoker Revoker) *Sessions {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Sessions{Issuer: issuer, Revoker: revoker}
}

// Start issues a token for the user.
func (s *Sessions) Start(userID, username string) (string, Claims, error) {
	return s.Issuer.Issue(userID, username)
}

// Validate parses token and rejects revoked sessions. A revocation store
// failure is logged and the token is accepted.
func (s *Sessions) Validate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.Issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.Revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		telemetry.Warn("session.revocation_check_failed", map[string]any{"err": err, "user_id": claims.UserID})
		return claims, nil
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// End revokes the session until its token would have expired anyway.
func (s *Sessions) End(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.Revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
