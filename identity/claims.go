package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-chat-auth/internal/errors"
)

// SecureTokenIssuer is the issuer prefix of Firebase ID tokens.
const SecureTokenIssuer = "https://securetoken.google.com/"

// Claims holds the identity attributes carried by an ID token.
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Issuer    string    `json:"iss"`
	Subject   string    `json:"sub"`
	ExpiresAt time.Time `json:"exp"`
	Verified  bool      `json:"verified"` // True when the signature was checked
}

// PeekClaims decodes an ID token without verifying its signature. It is used
// to recover identity attributes from a persisted token, never to make an
// access decision.
func PeekClaims(rawToken string) (*Claims, error) {
	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("[identity PeekClaims] %w: %w", errors.ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("[identity PeekClaims] %w: error extracting claims", errors.ErrInvalidToken)
	}

	claims := &Claims{}
	claims.UserID, _ = mapClaims["user_id"].(string)
	claims.Email, _ = mapClaims["email"].(string)
	claims.Issuer, _ = mapClaims.GetIssuer()
	claims.Subject, _ = mapClaims.GetSubject()
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}

// Verifier checks ID token signatures against the project's published keys.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the secure token issuer for projectID.
func NewVerifier(ctx context.Context, projectID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, SecureTokenIssuer+projectID)
	if err != nil {
		return nil, fmt.Errorf("[identity NewVerifier] failed to create OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: projectID})}, nil
}

// NewVerifierWithKeySet builds a Verifier without discovery.
func NewVerifierWithKeySet(issuer, projectID string, keySet oidc.KeySet) *Verifier {
	return &Verifier{verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: projectID})}
}

// Verify validates rawToken and returns its claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("[identity Verify] %w: %w", errors.ErrInvalidToken, err)
	}

	var extra struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	if err := idToken.Claims(&extra); err != nil {
		return nil, fmt.Errorf("[identity Verify] %w: %w", errors.ErrInvalidToken, err)
	}

	claims := &Claims{
		UserID:    extra.UserID,
		Email:     extra.Email,
		Issuer:    idToken.Issuer,
		Subject:   idToken.Subject,
		ExpiresAt: idToken.Expiry,
		Verified:  true,
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
