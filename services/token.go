package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"neoShop/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 bearer tokens. Tokens carry no expiry; a session lasts until logout.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(secret string) (TokenIssuer, error) {
	if secret == "" {
		return TokenIssuer{}, errors.New("token secret must be non-empty")
	}
	return TokenIssuer{secret: []byte(secret), now: time.Now}, nil
}

func (t TokenIssuer) Issue(user models.User) (token string, err error) {
	claims := tokenClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Subject:  strconv.FormatInt(user.Id, 10),
			IssuedAt: jwt.NewNumericDate(t.now()),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		slog.Error("Issue: signing failed", "err", err)
		err = models.ErrServerError
	}
	return
}

// Parse returns the user id the token was issued for.
func (t TokenIssuer) Parse(token string) (userId int64, err error) {
	claims := &tokenClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		slog.Debug("Parse: rejected token", "err", err)
		err = fmt.Errorf("%w: invalid token", models.ErrUnauthorized)
		return
	}
	userId, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		err = fmt.Errorf("%w: invalid token subject", models.ErrUnauthorized)
	}
	return
}
