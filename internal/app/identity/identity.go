/*
Package identity contains the data structures and logic for the local participant's
identity and credential.

It defines the Identity struct passed explicitly into every component that needs the
display name or bearer token, replacing any ambient credential storage, and decodes
the token's claims to recover the display name and reject expired credentials early.
*/
package identity

import (
	"time"

	"github.com/golang-jwt/jwt"

	"splitroom/internal/pkg/errs"
)

// Claims defines the structure of the room service's JWT claims.
type Claims struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer).
	jwt.StandardClaims `json:"standard_claims"`

	// Name is the display name the service bound to this credential.
	Name string `json:"name"`
}

// Identity represents the local participant: the display name shown to other room
// members and the bearer credential presented on every REST call and on the live
// channel handshake.
type Identity struct {
	// DisplayName is the name other participants see. It is not a stable identity
	// key; two participants may carry the same name.
	DisplayName string

	// Token is the opaque bearer credential.
	Token string
}

// FromToken builds an Identity from a bearer token by decoding its claims.
// The signature is not verified here (the client does not hold the signing secret);
// the service is the authority and rejects forged tokens on its own. Decoding only
// recovers the display name and lets an already-expired credential fail room entry
// before any network call is made.
func FromToken(token string) (Identity, error) {
	claims := &Claims{}

	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return Identity{}, errs.NewError(errs.ErrTokenMalformed)
	}

	if claims.ExpiresAt != 0 && time.Now().Unix() >= claims.ExpiresAt {
		return Identity{}, errs.NewError(errs.ErrTokenExpired)
	}

	return Identity{
		DisplayName: claims.Name,
		Token:       token,
	}, nil
}
