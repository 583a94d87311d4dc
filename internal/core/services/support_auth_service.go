package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/trackitco/support-dashboard/internal/auth"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// SupportAuthService logs support agents in and issues support tokens.
type SupportAuthService struct {
	agents ports.SupportAgentRepository
	tokens *auth.TokenManager
}

var _ ports.SupportAuthService = (*SupportAuthService)(nil)

// NewSupportAuthService creates a new support login service
func NewSupportAuthService(agents ports.SupportAgentRepository, tokens *auth.TokenManager) *SupportAuthService {
	return &SupportAuthService{
		agents: agents,
		tokens: tokens,
	}
}

// Login authenticates a support agent with email and password
func (s *SupportAuthService) Login(ctx context.Context, email, password string) (*ports.SupportToken, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.ErrEmailRequired
	}
	if password == "" {
		return nil, apperrors.ErrPasswordRequired
	}

	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrSupportAgentNotFound) {
			// Don't reveal whether email exists
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !agent.IsActive || !agent.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateSupportToken(agent.ID)
	if err != nil {
		return nil, fmt.Errorf("issue support token: %w", err)
	}

	return &ports.SupportToken{Token: token, ExpiresAt: expiresAt, Agent: agent}, nil
}
