package service

import (
	"context"
	"testing"
	"time"

	"github.com/laqq/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(t, st)

	user := seedUser(t, st, "alice@example.com", "password-123", userOpts{})

	pair, err := tokens.IssuePair(user, time.Now().UTC())
	require.NoError(t, err)

	t.Run("valid refresh token yields a fresh access token", func(t *testing.T) {
		renewed, err := tokens.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, renewed.AccessToken)

		claims, err := tokens.Verifier.Verify(renewed.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)
		require.Equal(t, jwtx.TokenUseAccess, claims.TokenUse)
	})

	t.Run("access token is rejected at the refresh endpoint", func(t *testing.T) {
		_, err := tokens.Refresh(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := tokens.Refresh(ctx, "not-a-jwt")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("token signed by a different key is rejected", func(t *testing.T) {
		other := newTokenService(t, st)
		foreign, err := other.IssuePair(user, time.Now().UTC())
		require.NoError(t, err)

		_, err = tokens.Refresh(ctx, foreign.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("deactivated account cannot refresh", func(t *testing.T) {
		require.NoError(t, st.Users().SetActive(ctx, user.ID, false))
		t.Cleanup(func() { _ = st.Users().SetActive(ctx, user.ID, true) })

		_, err := tokens.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrAccountDisabled)
	})

	t.Run("deleted account cannot refresh", func(t *testing.T) {
		ghost := seedUser(t, st, "ghost@example.com", "password-123", userOpts{})
		ghostPair, err := tokens.IssuePair(ghost, time.Now().UTC())
		require.NoError(t, err)

		require.NoError(t, st.Users().DeleteUser(ctx, ghost.ID))

		_, err = tokens.Refresh(ctx, ghostPair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}
