// Package invite builds the shareable deep link for a user. The token is a
// reversible encoding of the internal user id; it identifies the inviter but
// is not a credential.
package invite

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidToken = errors.New("invite: invalid token")

// Padding is stripped so the token survives URL query strings untouched.
var encoding = base64.StdEncoding.WithPadding(base64.NoPadding)

// Encode turns a user id into an opaque token.
func Encode(userID int64) string {
	return encoding.EncodeToString([]byte(strconv.FormatInt(userID, 10)))
}

// Decode is the inverse of Encode.
func Decode(token string) (int64, error) {
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id < 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Link builds the Mini App deep link carrying the encoded user id.
func Link(botUsername, appName string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s/%s?startapp=%s", botUsername, appName, Encode(userID))
}
