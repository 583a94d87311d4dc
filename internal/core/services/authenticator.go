package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/trackitco/support-dashboard/internal/auth"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// Authenticator resolves both credential kinds the dashboard accepts: signed
// support tokens and opaque app session tokens.
type Authenticator struct {
	tokens      *auth.TokenManager
	sessions    ports.SessionRepository
	tokenSecret string
	logger      *slog.Logger
}

var _ ports.Authenticator = (*Authenticator)(nil)

// NewAuthenticator creates a new authenticator
func NewAuthenticator(tokens *auth.TokenManager, sessions ports.SessionRepository, tokenSecret string, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		tokens:      tokens,
		sessions:    sessions,
		tokenSecret: tokenSecret,
		logger:      logger.With("component", "authenticator"),
	}
}

// Authenticate verifies cred. A valid support token needs SupportUserID to
// name the user being viewed; anything else is looked up as a session token.
func (a *Authenticator) Authenticate(ctx context.Context, cred domain.Credential) (domain.Identity, error) {
	token := strings.TrimSpace(cred.Token)
	if token == "" {
		return domain.Identity{}, apperrors.ErrAuthenticationFailed
	}

	if claims, err := a.tokens.ValidateToken(token); err == nil {
		if !claims.IsSupport() || claims.Subject == "" {
			return domain.Identity{}, fmt.Errorf("%w: token role %q", apperrors.ErrAuthenticationFailed, claims.Role)
		}
		acting := strings.TrimSpace(cred.SupportUserID)
		if acting == "" {
			return domain.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrAuthenticationFailed, apperrors.ErrActingUserRequired)
		}
		return domain.Identity{UserID: claims.Subject, IsSupport: true, ActingUserID: acting}, nil
	}

	userID, err := a.sessions.FindUserByTokenHash(ctx, auth.HashSessionToken(a.tokenSecret, token))
	if err != nil {
		a.logger.DebugContext(ctx, "session lookup failed", "error", err)
		return domain.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrAuthenticationFailed, err)
	}
	return domain.Identity{UserID: userID}, nil
}
