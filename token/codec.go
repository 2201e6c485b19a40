package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/mergington-activities/internal/errors"
	"github.com/jrsteele09/mergington-activities/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// TypeAccess marks tokens minted for the bearer authorization path.
const TypeAccess = "access"

// Claims carried by an access token. The subject is the profile email and SessionID
// names the session the token was minted from.
type Claims struct {
	SessionID string  `json:"sid"`
	Email     string  `json:"email"`
	Name      string  `json:"name,omitempty"`
	UserID    string  `json:"uid,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Type      string  `json:"type"`
	jwt.RegisteredClaims
}

// Profile rebuilds the user profile embedded in the claims.
func (c *Claims) Profile() *users.Profile {
	return &users.Profile{
		Email:     c.Email,
		Name:      c.Name,
		ID:        c.UserID,
		AvatarURL: c.AvatarURL,
	}
}

// Codec encodes and decodes signed, expiring access tokens.
type Codec struct {
	signer Signer
}

func NewCodec(signer Signer) *Codec {
	return &Codec{signer: signer}
}

// Encode signs an access token for profile bound to sessionID and valid for ttl,
// returning the token and its expiry.
func (c *Codec) Encode(profile users.Profile, sessionID string, ttl time.Duration) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, errors.New("[Codec Encode] session id is required")
	}
	now := NowTimeFunc()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		SessionID: sessionID,
		Email:     profile.Email,
		Name:      profile.Name,
		UserID:    profile.ID,
		AvatarURL: profile.AvatarURL,
		Type:      TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.Subject(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("[Codec Encode] %w", err)
	}
	return signed, expiresAt, nil
}

// Decode verifies tokenString and returns its claims.
// Every failure, including a non-access token type, wraps ErrInvalidToken.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(NowTimeFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%v", err)
	}
	if claims.Type != TypeAccess {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "unexpected token type %q", claims.Type)
	}
	if claims.SessionID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "missing session id")
	}
	return claims, nil
}
