package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventure/eventure/internal/model"
)

const testIssuer = "https://accounts.google.com"

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func newJWKSServer(t *testing.T, pub *rsa.PublicKey, kid string) *httptest.Server {
	t.Helper()
	doc := map[string]any{
		"keys": []map[string]string{{
			"kid": kid,
			"kty": "RSA",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(doc)
	}))
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":         testIssuer,
		"aud":         "client-id",
		"sub":         "google-subject-1",
		"email":       "ada@example.com",
		"given_name":  "Ada",
		"family_name": "Lovelace",
		"exp":         time.Now().Add(time.Hour).Unix(),
		"iat":         time.Now().Unix(),
	}
}

func TestGoogleVerifier_VerifyIDToken(t *testing.T) {
	key := newTestKey(t)
	srv := newJWKSServer(t, &key.PublicKey, "kid-1")
	defer srv.Close()

	v := NewGoogleVerifier(Config{ClientID: "client-id", Issuer: testIssuer, JWKSURL: srv.URL})

	claims, err := v.VerifyIDToken(context.Background(), signIDToken(t, key, "kid-1", baseClaims()))
	require.NoError(t, err)
	assert.Equal(t, "google-subject-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.GivenName)
	assert.Equal(t, "Lovelace", claims.FamilyName)
}

func TestGoogleVerifier_KeysCachedByKid(t *testing.T) {
	key := newTestKey(t)
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		doc := map[string]any{
			"keys": []map[string]string{{
				"kid": "kid-1",
				"kty": "RSA",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		}
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer srv.Close()

	v := NewGoogleVerifier(Config{ClientID: "client-id", Issuer: testIssuer, JWKSURL: srv.URL})

	for i := 0; i < 3; i++ {
		_, err := v.VerifyIDToken(context.Background(), signIDToken(t, key, "kid-1", baseClaims()))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fetches)
}

func TestGoogleVerifier_RejectsWrongAudience(t *testing.T) {
	key := newTestKey(t)
	srv := newJWKSServer(t, &key.PublicKey, "kid-1")
	defer srv.Close()

	v := NewGoogleVerifier(Config{ClientID: "client-id", Issuer: testIssuer, JWKSURL: srv.URL})

	claims := baseClaims()
	claims["aud"] = "someone-else"
	_, err := v.VerifyIDToken(context.Background(), signIDToken(t, key, "kid-1", claims))
	require.Error(t, err)
	assert.Equal(t, model.KindAuthProvider, model.ErrorKind(err))
}

func TestGoogleVerifier_RejectsWrongIssuer(t *testing.T) {
	key := newTestKey(t)
	srv := newJWKSServer(t, &key.PublicKey, "kid-1")
	defer srv.Close()

	v := NewGoogleVerifier(Config{ClientID: "client-id", Issuer: testIssuer, JWKSURL: srv.URL})

	claims := baseClaims()
	claims["iss"] = "https://evil.example.com"
	_, err := v.VerifyIDToken(context.Background(), signIDToken(t, key, "kid-1", claims))
	require.Error(t, err)
	assert.Equal(t, model.KindAuthProvider, model.ErrorKind(err))
}

func TestGoogleVerifier_RejectsUnknownKid(t *testing.T) {
	key := newTestKey(t)
	srv := newJWKSServer(t, &key.PublicKey, "kid-1")
	defer srv.Close()

	v := NewGoogleVerifier(Config{ClientID: "client-id", Issuer: testIssuer, JWKSURL: srv.URL})

	_, err := v.VerifyIDToken(context.Background(), signIDToken(t, key, "kid-2", baseClaims()))
	require.Error(t, err)
	assert.Equal(t, model.KindAuthProvider, model.ErrorKind(err))
}

func TestGoogleVerifier_Exchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]string{"id_token": "the-id-token"})
	}))
	defer srv.Close()

	v := NewGoogleVerifier(Config{ClientID: "client-id", ClientSecret: "shh", TokenURL: srv.URL})

	idToken, err := v.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "the-id-token", idToken)
}

func TestGoogleVerifier_ExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad code", http.StatusBadRequest)
	}))
	defer srv.Close()

	v := NewGoogleVerifier(Config{TokenURL: srv.URL})

	_, err := v.Exchange(context.Background(), "bogus")
	require.Error(t, err)
	assert.Equal(t, model.KindAuthProvider, model.ErrorKind(err))
}

func TestGoogleVerifier_AuthCodeURL(t *testing.T) {
	v := NewGoogleVerifier(Config{
		ClientID:    "client-id",
		RedirectURL: "http://localhost:8080/user/auth/google/callback",
		AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
	})

	u, err := url.Parse(v.AuthCodeURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "profile email", u.Query().Get("scope"))
}
