package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
)

var ErrNoIdentity = errors.New("no authenticated user in context")

// ClaimsProfileProvider reads the donor profile from the access token.
type ClaimsProfileProvider struct{}

func (ClaimsProfileProvider) CurrentProfile(ctx context.Context) (*donation.Profile, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, ErrNoIdentity
	}
	return &donation.Profile{
		UserID:    claims.Identity(),
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Email:     claims.Email,
		Phone:     claims.Phone,
	}, nil
}

type ProfileFetcher interface {
	GetProfile(ctx context.Context) (*donation.Profile, error)
}

// FallbackProfileProvider asks the Donation API for the profile and falls
// back to the token claims when that fails.
type FallbackProfileProvider struct {
	remote ProfileFetcher
	logger *slog.Logger
}

func NewFallbackProfileProvider(remote ProfileFetcher, logger *slog.Logger) *FallbackProfileProvider {
	return &FallbackProfileProvider{remote: remote, logger: logger}
}

func (p *FallbackProfileProvider) CurrentProfile(ctx context.Context) (*donation.Profile, error) {
	profile, err := p.remote.GetProfile(ctx)
	if err == nil && profile != nil {
		return profile, nil
	}
	p.logger.Warn("profile lookup failed, using token claims", "error", err)
	return ClaimsProfileProvider{}.CurrentProfile(ctx)
}
