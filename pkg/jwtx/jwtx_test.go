package jwtx_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/laqq/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T, kid string) *jwtx.EdDSASigner {
	t.Helper()
	pem, err := jwtx.GenerateEd25519PEM()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA(kid, pem)
	require.NoError(t, err)
	return signer
}

func TestSignAndVerifyRoundtrip(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "k1")
	verifier := jwtx.NewVerifierEdDSA("k1", signer.Public(), "laqq-auth")

	claims := jwtx.NewClaims(
		jwtx.TokenUseAccess,
		"user-123", "ana@example.com", "role-1",
		false,
		jwtx.DefaultAccessTokenTTL,
		"laqq-auth",
		time.Now().UTC(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", got.Subject)
	require.Equal(t, "ana@example.com", got.Email)
	require.Equal(t, jwtx.TokenUseAccess, got.TokenUse)
	require.False(t, got.Superuser)
	require.NotEmpty(t, got.ID) // jti
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "k1")
	other := newTestSigner(t, "k1")
	verifier := jwtx.NewVerifierEdDSA("k1", other.Public(), "laqq-auth")

	token, err := signer.Sign(jwtx.NewClaims(
		jwtx.TokenUseAccess, "u", "u@example.com", "", false,
		time.Minute, "laqq-auth", time.Now().UTC(),
	))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestVerifyRejectsUnknownKID(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "rotated-away")
	verifier := jwtx.NewVerifierEdDSA("current", signer.Public(), "laqq-auth")

	token, err := signer.Sign(jwtx.NewClaims(
		jwtx.TokenUseAccess, "u", "u@example.com", "", false,
		time.Minute, "laqq-auth", time.Now().UTC(),
	))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "k1")
	verifier := jwtx.NewVerifierEdDSA("k1", signer.Public(), "expected-issuer")

	token, err := signer.Sign(jwtx.NewClaims(
		jwtx.TokenUseAccess, "u", "u@example.com", "", false,
		time.Minute, "some-other-issuer", time.Now().UTC(),
	))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestValidateExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	t.Run("valid token", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		require.NoError(t, c.ValidateExpiry())
	})

	t.Run("expired token", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		}}
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			NotBefore: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrNotYetValid)
	})
}

func TestValidateTokenUse(t *testing.T) {
	t.Parallel()

	c := &jwtx.Claims{TokenUse: jwtx.TokenUseRefresh}
	require.NoError(t, c.ValidateTokenUse(jwtx.TokenUseRefresh))
	require.ErrorIs(t, c.ValidateTokenUse(jwtx.TokenUseAccess), jwtx.ErrTokenUse)
}
