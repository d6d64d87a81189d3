package mw

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"vn.io.arda/tenant-manager/internal/domain"
)

const callerKey = "caller"

// jwksCache caches the realm signing keys to avoid fetching on every request.
var jwksCache = &sync.Map{}

type cachedJWKS struct {
	keys    map[string]*rsa.PublicKey
	fetchAt time.Time
}

const jwksTTL = 5 * time.Minute

// JWTAuth validates the Bearer token issued by Keycloak for the managed
// realm, verifying the RSA signature against the realm's JWKS.
// The resulting Caller (user id + realm roles) is stored in echo.Context
// for downstream use.
func JWTAuth(keycloakBaseURL, realm string) echo.MiddlewareFunc {
	jwksURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", keycloakBaseURL, realm)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenStr, keyFunc(jwksURL), jwt.WithValidMethods([]string{"RS256"}))
			if err != nil || !token.Valid {
				log.Warn().Err(err).Str("realm", realm).Msg("JWT verification failed")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid claims")
			}

			userID, _ := claims["sub"].(string)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token carries no subject")
			}

			c.Set(callerKey, domain.Caller{UserID: userID, Roles: realmRoles(claims)})
			return next(c)
		}
	}
}

// Caller returns the caller identity stored by JWTAuth.
func Caller(c echo.Context) domain.Caller {
	caller, _ := c.Get(callerKey).(domain.Caller)
	return caller
}

// realmRoles extracts realm_access.roles from Keycloak token claims.
func realmRoles(claims jwt.MapClaims) []string {
	realmAccess, _ := claims["realm_access"].(map[string]any)
	raw, _ := realmAccess["roles"].([]any)
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// keyFunc resolves the token's kid against the realm JWKS.
func keyFunc(jwksURL string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token carries no kid")
		}
		keys, err := fetchJWKS(jwksURL)
		if err != nil {
			return nil, err
		}
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
		return key, nil
	}
}

// fetchJWKS loads the realm's RSA signing keys with a small in-memory cache.
func fetchJWKS(jwksURL string) (map[string]*rsa.PublicKey, error) {
	if cached, ok := jwksCache.Load(jwksURL); ok {
		if entry := cached.(*cachedJWKS); time.Since(entry.fetchAt) < jwksTTL {
			return entry.keys, nil
		}
	}

	resp, err := http.Get(jwksURL) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			log.Warn().Err(err).Str("kid", k.Kid).Msg("skipping malformed JWK")
			continue
		}
		keys[k.Kid] = pub
	}

	jwksCache.Store(jwksURL, &cachedJWKS{keys: keys, fetchAt: time.Now()})
	return keys, nil
}

// rsaKey builds an RSA public key from base64url-encoded modulus and exponent.
func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}
