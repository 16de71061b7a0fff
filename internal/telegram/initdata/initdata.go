// Package initdata validates Telegram Mini App init-data blobs.
//
// The blob is a URL-encoded query string carrying arbitrary key/value pairs,
// a detached hex HMAC in the "hash" field and the authenticated user as JSON
// in the "user" field. Validation follows the Web App flow: the secret key is
// HMAC-SHA256 of the bot token keyed with the literal "WebAppData", and the
// submitted hash is HMAC-SHA256 of the key-sorted data-check-string keyed
// with that secret.
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrMalformed   = errors.New("initdata: malformed init data")
	ErrMissingHash = errors.New("initdata: missing hash field")
	ErrMissingUser = errors.New("initdata: missing user field")
)

// secretKeySeed is fixed by the Telegram Web App signing scheme.
const secretKeySeed = "WebAppData"

// Payload holds the decoded key/value pairs with the signature detached.
type Payload struct {
	pairs map[string]string
	hash  string
}

// Identity is the authenticated user recovered from the "user" field.
type Identity struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// Parse decodes a raw init-data query string. The "hash" field is detached
// from the pair set so it never participates in canonicalization. When a key
// repeats, the last occurrence wins before sorting.
func Parse(raw string) (*Payload, error) {
	unescaped, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, ErrMalformed
	}

	values, err := url.ParseQuery(unescaped)
	if err != nil {
		return nil, ErrMalformed
	}

	pairs := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		pairs[key] = vals[len(vals)-1]
	}

	hash, ok := pairs["hash"]
	if !ok || hash == "" {
		return nil, ErrMissingHash
	}
	delete(pairs, "hash")

	return &Payload{pairs: pairs, hash: hash}, nil
}

// Hash returns the detached hex digest submitted with the payload.
func (p *Payload) Hash() string { return p.hash }

// Get returns the value for a key, or "" when absent.
func (p *Payload) Get(key string) string { return p.pairs[key] }

// User decodes the "user" field into an Identity.
func (p *Payload) User() (Identity, error) {
	raw, ok := p.pairs["user"]
	if !ok || raw == "" {
		return Identity{}, ErrMissingUser
	}

	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return Identity{}, ErrMissingUser
	}
	if id.ID == 0 {
		return Identity{}, ErrMissingUser
	}
	return id, nil
}

// Canonical builds the data-check-string: entries sorted by key in byte
// order, each joined as key=value with "\n" separators and no trailing
// separator. Pure and iteration-order independent.
func Canonical(pairs map[string]string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(pairs[k])
	}
	return sb.String()
}

// Sign computes the expected hex digest for a pair set under botToken.
func Sign(pairs map[string]string, botToken string) string {
	secret := hmac.New(sha256.New, []byte(secretKeySeed))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(Canonical(pairs)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether hexDigest matches the HMAC chain over the canonical
// string for botToken. Comparison is constant time.
func Verify(pairs map[string]string, hexDigest, botToken string) bool {
	expected := Sign(pairs, botToken)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(hexDigest)) == 1
}

// VerifyWith is Verify over a parsed payload and its detached hash.
func (p *Payload) VerifyWith(botToken string) bool {
	return Verify(p.pairs, p.hash, botToken)
}
