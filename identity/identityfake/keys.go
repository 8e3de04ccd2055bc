package identityfake

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
)

const keyBits = 2048

// keyPair is the RS256 key the fake signs ID tokens with.
type keyPair struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents an RSA JSON Web Key
type JWK struct {
	Kty string `json:"kty"`           // Key type
	Use string `json:"use,omitempty"` // sig or enc
	Kid string `json:"kid,omitempty"` // Key ID
	Alg string `json:"alg,omitempty"` // Algorithm
	N   string `json:"n"`             // Modulus
	E   string `json:"e"`             // Exponent
}

var (
	sharedKeyOnce sync.Once
	sharedKey     *keyPair
	sharedKeyErr  error
)

// signingKey returns a process wide key; generating RSA keys per test is slow.
func signingKey() (*keyPair, error) {
	sharedKeyOnce.Do(func() {
		privateKey, err := rsa.GenerateKey(rand.Reader, keyBits)
		if err != nil {
			sharedKeyErr = err
			return
		}
		sharedKey = &keyPair{KeyID: uuid.NewString(), PrivateKey: privateKey}
	})
	return sharedKey, sharedKeyErr
}

// ToJWK converts the public half to JWK format
func (kp *keyPair) ToJWK() JWK {
	pub := kp.PrivateKey.PublicKey
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kp.KeyID,
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// JWKSURL serves the public signing key.
func (s *Server) JWKSURL() string {
	return s.URL + "/jwks"
}

// Issuer is the iss claim of tokens minted by the fake.
func (s *Server) Issuer() string {
	return "https://securetoken.google.com/" + ProjectID
}

// KeySet fetches the fake's signing keys for token verification.
func (s *Server) KeySet(ctx context.Context) oidc.KeySet {
	return oidc.NewRemoteKeySet(ctx, s.JWKSURL())
}

func (s *Server) jwks(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{s.key.ToJWK()}})
}
