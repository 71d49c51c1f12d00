package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// DefaultAccessTTL is the lifetime of an access token.
const DefaultAccessTTL = time.Hour

// ErrInvalidToken is returned for any token that fails verification: bad
// signature, unexpected algorithm, expired, or missing the email claim.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// Claims is the identity carried by an access token.
type Claims struct {
    Email string `json:"email"`
    jwt.RegisteredClaims
}

// NewAccessToken signs an HS256 JWT carrying the email claim.  A
// non-positive ttl falls back to DefaultAccessTTL.
func NewAccessToken(secret, email string, ttl time.Duration) (AccessToken, error) {
    if ttl <= 0 {
        ttl = DefaultAccessTTL
    }
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := Claims{
        Email: strings.ToLower(strings.TrimSpace(email)),
        RegisteredClaims: jwt.RegisteredClaims{
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and returns its claims.
// It performs no I/O.
func ParseAccessToken(secret, raw string) (Claims, error) {
    var claims Claims
    tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithIssuedAt(),
    )
    if err != nil || !tok.Valid {
        return Claims{}, ErrInvalidToken
    }
    if claims.Email == "" {
        return Claims{}, ErrInvalidToken
    }
    return claims, nil
}
