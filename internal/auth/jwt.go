package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrUnauthorized covers every credential failure. Missing, malformed,
// expired and revoked tokens are deliberately indistinguishable to callers.
var ErrUnauthorized = errors.New("unauthorized")

// Verifier authenticates bearer credentials and yields a stable user id.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Authenticate validates a bearer token and returns the user id from its
// subject claim. No caching, no side effects.
func (v *Verifier) Authenticate(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, ErrUnauthorized
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}

	now := time.Now().Unix()
	if exp, ok := claims["exp"].(float64); ok && int64(exp) < now {
		return uuid.Nil, ErrUnauthorized
	}
	if nbf, ok := claims["nbf"].(float64); ok && int64(nbf) > now {
		return uuid.Nil, ErrUnauthorized
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrUnauthorized
	}

	return userID, nil
}

// Issue mints a token for the given user. Used by dev tooling and tests; the
// production issuer lives in the account service.
func (v *Verifier) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
