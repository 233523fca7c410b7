package service

import (
	"context"
	"errors"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/jwtx"
	"github.com/laqq/authd/pkg/slogx"
)

// TokenService mints and refreshes the JWT pair. Refresh is stateless: the
// refresh token is a signed claim set with token_use=refresh, nothing is
// persisted, and revocation happens by deactivating the account.
type TokenService struct {
	Signer     jwtx.Signer
	Verifier   jwtx.Verifier
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssuePair signs a fresh access/refresh pair for the user.
func (s *TokenService) IssuePair(user domain.User, now time.Time) (domain.TokenPair, error) {
	access, err := s.sign(jwtx.TokenUseAccess, user, s.AccessTTL, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.sign(jwtx.TokenUseRefresh, user, s.RefreshTTL, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The user
// is re-loaded so a deactivated or deleted account cannot keep refreshing;
// no password or second-factor re-check happens here.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Verifier.Verify(refreshToken)
	if err != nil {
		l.Info("refresh token rejected", "err", err)
		return domain.TokenPair{}, ErrInvalidRefresh
	}
	if err := claims.ValidateTokenUse(jwtx.TokenUseRefresh); err != nil {
		l.Info("access token presented to refresh endpoint")
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidRefresh
		}
		return domain.TokenPair{}, err
	}
	if !user.IsActive {
		return domain.TokenPair{}, ErrAccountDisabled
	}

	now := time.Now().UTC()
	access, err := s.sign(jwtx.TokenUseAccess, user, s.AccessTTL, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	// The presented refresh token stays valid until its own expiry.
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

func (s *TokenService) sign(tokenUse string, user domain.User, ttl time.Duration, now time.Time) (string, error) {
	var roleID string
	if user.RoleID != nil {
		roleID = *user.RoleID
	}
	claims := jwtx.NewClaims(
		tokenUse,
		user.ID,
		user.Email,
		roleID,
		user.IsSuperuser,
		ttl,
		s.Issuer,
		now,
	)
	return s.Signer.Sign(claims)
}
