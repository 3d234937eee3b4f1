// Package auth verifies identities asserted by the Google OAuth provider.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eventure/eventure/internal/model"
)

// Config captures the provider endpoints and client credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	JWKSURL      string
	Issuer       string
}

// ProviderClaims are the verified claims the core depends on.
type ProviderClaims struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// GoogleVerifier exchanges authorization codes and verifies ID tokens
// against the provider's published signing keys. Keys are cached by key id;
// they rotate infrequently, so a fetch per login would be wasted latency.
type GoogleVerifier struct {
	cfg           Config
	client        *http.Client
	cacheDuration time.Duration

	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	lastLoaded time.Time
}

// NewGoogleVerifier constructs a verifier for the given provider config.
func NewGoogleVerifier(cfg Config) *GoogleVerifier {
	return &GoogleVerifier{
		cfg:           cfg,
		client:        &http.Client{Timeout: 5 * time.Second},
		cacheDuration: 10 * time.Minute,
		keys:          make(map[string]*rsa.PublicKey),
	}
}

// AuthCodeURL builds the provider's authorization redirect URL.
func (v *GoogleVerifier) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", v.cfg.ClientID)
	q.Set("redirect_uri", v.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "profile email")
	q.Set("state", state)
	return v.cfg.AuthURL + "?" + q.Encode()
}

// Exchange trades an authorization code for the provider's ID token.
func (v *GoogleVerifier) Exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", v.cfg.ClientID)
	form.Set("client_secret", v.cfg.ClientSecret)
	form.Set("redirect_uri", v.cfg.RedirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", model.WrapError(model.KindAuthProvider, "create token exchange request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", model.WrapError(model.KindAuthProvider, "exchange authorization code", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", model.NewError(model.KindAuthProvider, fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}

	var payload struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", model.WrapError(model.KindAuthProvider, "decode token response", err)
	}
	if payload.IDToken == "" {
		return "", model.NewError(model.KindAuthProvider, "token response missing id_token")
	}
	return payload.IDToken, nil
}

// VerifyIDToken checks the ID token's signature against the provider's
// current signing keys and validates the issuer and audience claims.
func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, rawIDToken string) (ProviderClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithLeeway(5 * time.Second),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.ClientID),
	}

	t, err := jwt.Parse(rawIDToken, v.keyFunc(ctx), options...)
	if err != nil {
		return ProviderClaims{}, model.WrapError(model.KindAuthProvider, "id token verification failed", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return ProviderClaims{}, model.NewError(model.KindAuthProvider, "unexpected id token claims type")
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return ProviderClaims{}, model.NewError(model.KindAuthProvider, "id token missing subject claim")
	}
	email, _ := claims["email"].(string)
	givenName, _ := claims["given_name"].(string)
	familyName, _ := claims["family_name"].(string)

	return ProviderClaims{
		Subject:    subject,
		Email:      email,
		GivenName:  givenName,
		FamilyName: familyName,
	}, nil
}

func (v *GoogleVerifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("id token missing kid header")
		}

		if key, ok := v.lookupKey(kid); ok {
			return key, nil
		}

		if err := v.refreshKeys(ctx); err != nil {
			return nil, err
		}

		if key, ok := v.lookupKey(kid); ok {
			return key, nil
		}

		return nil, fmt.Errorf("jwks key %s not found", kid)
	}
}

func (v *GoogleVerifier) lookupKey(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok := v.keys[kid]
	return key, ok
}

func (v *GoogleVerifier) refreshKeys(ctx context.Context) error {
	v.mu.RLock()
	if time.Since(v.lastLoaded) < v.cacheDuration && len(v.keys) > 0 {
		v.mu.RUnlock()
		return nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if time.Since(v.lastLoaded) < v.cacheDuration && len(v.keys) > 0 {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return fmt.Errorf("create jwks request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var document jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&document); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(document.Keys))
	for _, key := range document.Keys {
		if key.Kty != "RSA" {
			continue
		}

		pubKey, err := key.rsaPublicKey()
		if err != nil {
			return fmt.Errorf("parse jwks key %s: %w", key.Kid, err)
		}
		keys[key.Kid] = pubKey
	}

	if len(keys) == 0 {
		return errors.New("jwks contained no supported keys")
	}

	v.keys = keys
	v.lastLoaded = time.Now()
	return nil
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (j jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	if j.N == "" || j.E == "" {
		return nil, errors.New("missing modulus or exponent")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	var eInt int
	for _, b := range eBytes {
		eInt = eInt<<8 + int(b)
	}
	if eInt == 0 {
		return nil, errors.New("invalid exponent value")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: eInt,
	}, nil
}
