package identity_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-chat-auth/identity"
	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/stretchr/testify/require"
)

const testProjectID = "chat-project"

func signTestToken(t *testing.T, key *rsa.PrivateKey, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	raw, err := token.SignedString(key)
	require.NoError(t, err)
	return raw
}

func testClaims(expiry time.Time) jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"iss":     identity.SecureTokenIssuer + testProjectID,
		"aud":     testProjectID,
		"sub":     "u1",
		"user_id": "u1",
		"email":   "e@x.com",
		"iat":     time.Now().Add(-time.Minute).Unix(),
		"exp":     expiry.Unix(),
	}
}

func TestPeekClaims(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	claims, err := identity.PeekClaims(signTestToken(t, key, testClaims(expiry)))
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, "e@x.com", claims.Email)
	require.Equal(t, identity.SecureTokenIssuer+testProjectID, claims.Issuer)
	require.True(t, expiry.Equal(claims.ExpiresAt))
	require.False(t, claims.Verified)

	_, err = identity.PeekClaims("not-a-jwt")
	require.True(t, errors.Is(err, errors.ErrInvalidToken))
}

func TestVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	v := identity.NewVerifierWithKeySet(identity.SecureTokenIssuer+testProjectID, testProjectID, keySet)

	t.Run("valid token", func(t *testing.T) {
		claims, err := v.Verify(context.Background(), signTestToken(t, key, testClaims(time.Now().Add(time.Hour))))
		require.NoError(t, err)
		require.True(t, claims.Verified)
		require.Equal(t, "u1", claims.UserID)
		require.Equal(t, "e@x.com", claims.Email)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := v.Verify(context.Background(), signTestToken(t, key, testClaims(time.Now().Add(-time.Hour))))
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})

	t.Run("foreign key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = v.Verify(context.Background(), signTestToken(t, other, testClaims(time.Now().Add(time.Hour))))
		require.Error(t, err)
	})
}
