package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
)

type ctxKey string

const ContextClaimsKey ctxKey = "claims"

// Claims are the identity provider's access token claims.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"given_name"`
	LastName  string `json:"family_name"`
	Phone     string `json:"phone_number"`
	jwt.RegisteredClaims
}

// Identity returns the user id, falling back to the subject claim.
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// TokenVerifier checks RS256 access tokens issued by the identity provider.
type TokenVerifier struct {
	publicKey *rsa.PublicKey
}

func NewTokenVerifier(publicKey *rsa.PublicKey) *TokenVerifier {
	return &TokenVerifier{publicKey: publicKey}
}

func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Identity() == "" {
		return nil, apperrors.ErrInvalidToken
	}

	return claims, nil
}

func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ContextClaimsKey, claims)
	return apperrors.ContextWithUserID(ctx, claims.Identity())
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ContextClaimsKey).(*Claims)
	return claims, ok && claims != nil
}
