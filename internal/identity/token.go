package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "recordvault/pkg/domain"
	dErrors "recordvault/pkg/domain-errors"
)

// Claims carried by an access token. The subject is the owner id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService signs and verifies HMAC access tokens. The identity provider
// is a collaborator; this service only validates what it issued or shares a
// key with.
type TokenService struct {
	signingKey []byte
	issuer     string
}

func NewTokenService(signingKey, issuer string) *TokenService {
	return &TokenService{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue creates a signed token for an owner. Used by tests and tooling; the
// production identity provider issues its own tokens with the shared key.
func (s *TokenService) Issue(ownerID id.OwnerID, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Verify parses a bearer token and returns the authenticated identity.
func (s *TokenService) Verify(tokenString string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Anonymous(), dErrors.New(dErrors.CodeAccessDenied, "token has expired")
		}
		return Anonymous(), dErrors.New(dErrors.CodeAccessDenied, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Anonymous(), dErrors.New(dErrors.CodeAccessDenied, "invalid token claims")
	}
	ownerID, err := id.ParseOwnerID(claims.Subject)
	if err != nil {
		return Anonymous(), dErrors.New(dErrors.CodeAccessDenied, "invalid token subject")
	}
	return Authenticated(ownerID), nil
}
