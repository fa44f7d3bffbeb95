package api

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
)

var ErrBadToken = errors.New("invalid session token")

// Tokens issues and checks HS256 session tokens. The token id (jti) is
// the session id it grants access to.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens signs with secret; ttl 0 issues tokens that never expire.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(sessionID string) (string, error) {
	now := t.now()
	claims := jwt.StandardClaims{
		Id:       sessionID,
		IssuedAt: now.Unix(),
		Issuer:   "rmdigit",
	}
	if t.ttl > 0 {
		claims.ExpiresAt = now.Add(t.ttl).Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "can't sign session token")
	}
	return token, nil
}

// Parse validates token and returns the session id it was issued for.
func (t *Tokens) Parse(token string) (string, error) {
	claims := &jwt.StandardClaims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return "", errors.Wrap(ErrBadToken, err.Error())
	}
	if claims.Id == "" {
		return "", ErrBadToken
	}
	return claims.Id, nil
}
