package auth

import (
	"crypto/rsa"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Validator checks bearer credentials against the same signing material
// used for REST auth. Supports HS256 (shared secret) and RS256 (public key).
type Validator struct {
	secret []byte
	pub    *rsa.PublicKey
}

func NewValidatorHS256(secret string) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("empty HS256 secret")
	}
	return &Validator{secret: []byte(secret)}, nil
}

func NewValidatorRS256(pubKeyPath string) (*Validator, error) {
	b, err := os.ReadFile(pubKeyPath)
	if err != nil {
		return nil, err
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, err
	}
	return &Validator{pub: pub}, nil
}

// Validate parses and verifies the token and returns the subject user id.
func (v *Validator) Validate(tokenStr string) (string, error) {
	var tok *jwt.Token
	var err error
	if v.pub != nil {
		tok, err = jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return v.pub, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
	} else {
		tok, err = jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return v.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
	}
	if err != nil {
		return "", err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return "", errors.New("invalid token")
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		return uid, nil
	}
	return "", errors.New("token missing subject")
}

func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header empty")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
