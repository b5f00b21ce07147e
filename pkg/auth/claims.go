package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// AccessTokenPayload is what a caller supplies when minting a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	// JTI defaults to a random uuid.
	JTI string
}

// AccessTokenClaims is the JWT body for staff sessions. The subject repeats
// the user id for generic JWT tooling.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass; jwt/v5 calls it through
// the ClaimsValidator interface.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return errors.New("token missing user id")
	case c.Subject != "" && c.Subject != c.UserID.String():
		return errors.New("token subject does not match user id")
	case !c.Role.IsValid():
		return fmt.Errorf("token carries unknown role %q", c.Role)
	}
	return nil
}
