package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/coinbase-dtc/bridge/platform"
)

const (
	// tokenLifetime is the JWT validity window Coinbase's Advanced Trade
	// API expects: exp - nbf must equal exactly 120 seconds.
	tokenLifetime = 120 * time.Second
	// refreshBuffer is how much validity must remain before
	// NeedsRefresh reports the cached token as stale.
	refreshBuffer = 30 * time.Second

	cdpIssuer = "cdp"
	cdpHost   = "api.coinbase.com"
)

// JWTAuthenticator mints and caches short-lived ES256 JWTs for CDP
// authenticated requests. One token is valid for exactly one (method,
// path) pair, so CurrentToken always signs a fresh token when the
// request target changes even if the cached token has not expired.
type JWTAuthenticator struct {
	creds CdpCredentials
	clock platform.Clock

	mu            sync.Mutex
	cachedToken   string
	cachedMethod  string
	cachedPath    string
	cachedExpiry  time.Time
}

// NewJWTAuthenticator builds an authenticator for the given credentials.
// clock is injectable so tests can exercise refresh-boundary behavior
// without sleeping.
func NewJWTAuthenticator(creds CdpCredentials, clock platform.Clock) (*JWTAuthenticator, error) {
	if !creds.IsValid() {
		return nil, ErrInvalidCredentials.Wrapf("missing key id or private key")
	}
	return &JWTAuthenticator{creds: creds, clock: clock}, nil
}

// GenerateToken signs a new JWT scoped to method+path, per Coinbase's
// "CDP API Key" JWT profile: ES256 algorithm, kid and nonce in the
// header, {sub, iss=cdp, nbf, exp=nbf+120, uri} in the claims.
func (a *JWTAuthenticator) GenerateToken(method, path string) (string, error) {
	now := a.clock.Now()
	exp := now.Add(tokenLifetime)
	uri := method + " " + cdpHost + path

	claims := jwt.MapClaims{
		"sub": a.creds.KeyID,
		"iss": cdpIssuer,
		"nbf": now.Unix(),
		"exp": exp.Unix(),
		"uri": uri,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = a.creds.KeyID
	token.Header["nonce"] = uuid.NewString()

	signed, err := token.SignedString(a.creds.PrivateKey)
	if err != nil {
		return "", ErrSignToken.Wrap(err)
	}

	a.mu.Lock()
	a.cachedToken = signed
	a.cachedMethod = method
	a.cachedPath = path
	a.cachedExpiry = exp
	a.mu.Unlock()

	return signed, nil
}

// NeedsRefresh reports whether the cached token (if any) has fewer than
// refreshBuffer seconds of validity remaining, or was never generated.
func (a *JWTAuthenticator) NeedsRefresh() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cachedToken == "" {
		return true
	}
	return !a.clock.Now().Add(refreshBuffer).Before(a.cachedExpiry)
}

// CurrentToken returns a valid token for method+path, reusing the cached
// token when it still targets the same request and has not crossed the
// refresh buffer.
func (a *JWTAuthenticator) CurrentToken(method, path string) (string, error) {
	a.mu.Lock()
	reusable := a.cachedToken != "" &&
		a.cachedMethod == method &&
		a.cachedPath == path &&
		a.clock.Now().Add(refreshBuffer).Before(a.cachedExpiry)
	cached := a.cachedToken
	a.mu.Unlock()

	if reusable {
		return cached, nil
	}
	return a.GenerateToken(method, path)
}

// AuthorizationHeader formats token as a Bearer Authorization header
// value.
func AuthorizationHeader(token string) string {
	return "Bearer " + token
}
