// Package altcha issues and verifies ALTCHA proof-of-work challenges on top
// of altcha-lib-go.
//
// The widget brute-forces the secret number behind a signed challenge and
// posts back a base64 JSON payload. Verification needs no server state
// beyond the HMAC key; the expiry travels in the salt and is checked against
// the caller's clock.
package altcha

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	altchalib "github.com/altcha-org/altcha-lib-go"
)

// Algorithm is the only hash supported.
const Algorithm = string(altchalib.SHA256)

const saltBytes = 12

var (
	// ErrMalformed is returned when the payload cannot be decoded.
	ErrMalformed = errors.New("altcha: malformed payload")
	// ErrUnsupportedAlgorithm is returned for anything other than SHA-256.
	ErrUnsupportedAlgorithm = errors.New("altcha: unsupported algorithm")
	// ErrExpired is returned when the salt's expiry has passed.
	ErrExpired = errors.New("altcha: challenge expired")
	// ErrMismatch is returned when the number or signature does not match.
	ErrMismatch = errors.New("altcha: solution does not match challenge")
)

// Challenge is sent to the widget.
type Challenge = altchalib.Challenge

// Payload is what the widget sends back, base64-encoded JSON.
type Payload struct {
	Algorithm string `json:"algorithm"`
	Challenge string `json:"challenge"`
	Number    int64  `json:"number"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
}

// Options controls challenge creation.
type Options struct {
	HMACKey   string
	MaxNumber int64
	// Expires, if non-zero, is embedded in the salt and enforced on verify.
	Expires time.Time
	// Number fixes the secret number. Zero picks one at random.
	Number int64
	// Salt fixes the salt. Empty generates one.
	Salt string
}

// CreateChallenge builds and signs a new challenge.
func CreateChallenge(opts Options) (Challenge, error) {
	if opts.MaxNumber <= 0 {
		return Challenge{}, fmt.Errorf("altcha: max number must be positive, got %d", opts.MaxNumber)
	}

	lo := altchalib.ChallengeOptions{
		Algorithm:  altchalib.SHA256,
		HMACKey:    opts.HMACKey,
		MaxNumber:  opts.MaxNumber,
		SaltLength: saltBytes,
		Salt:       opts.Salt,
	}
	if opts.Number != 0 {
		number := opts.Number
		lo.Number = &number
	}
	if !opts.Expires.IsZero() {
		expires := opts.Expires
		lo.Expires = &expires
	}

	c, err := altchalib.CreateChallenge(lo)
	if err != nil {
		return Challenge{}, fmt.Errorf("altcha: create challenge: %w", err)
	}
	return c, nil
}

// DecodePayload parses the base64 JSON form posted by the widget.
func DecodePayload(encoded string) (Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return p, nil
}

// Encode returns the payload in the form the widget posts.
func (p Payload) Encode() string {
	raw, _ := json.Marshal(p)
	return base64.StdEncoding.EncodeToString(raw)
}

// VerifySolution checks an encoded payload against hmacKey at time now.
func VerifySolution(encoded, hmacKey string, now time.Time) (Payload, error) {
	p, err := DecodePayload(encoded)
	if err != nil {
		return Payload{}, err
	}
	if p.Algorithm != Algorithm {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, p.Algorithm)
	}
	if expires, ok := p.Expiry(); ok && now.After(expires) {
		return Payload{}, ErrExpired
	}

	// Expiry was checked above against now, not the wall clock.
	ok, err := altchalib.VerifySolution(encoded, hmacKey, false)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !ok {
		return Payload{}, ErrMismatch
	}
	return p, nil
}

// Expiry returns the expiry embedded in the payload's salt, if any.
func (p Payload) Expiry() (time.Time, bool) {
	_, query, found := strings.Cut(p.Salt, "?")
	if !found {
		return time.Time{}, false
	}
	params, err := url.ParseQuery(query)
	if err != nil {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(params.Get("expires"), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// Solve finds the number for c by brute force, as the widget does. It returns
// false if no number up to c.MaxNumber matches.
func Solve(c Challenge) (Payload, bool) {
	s, err := altchalib.SolveChallenge(c.Challenge, c.Salt, altchalib.Algorithm(c.Algorithm), int(c.MaxNumber), 0, nil)
	if err != nil || s == nil {
		return Payload{}, false
	}
	return Payload{
		Algorithm: c.Algorithm,
		Challenge: c.Challenge,
		Number:    int64(s.Number),
		Salt:      c.Salt,
		Signature: c.Signature,
	}, true
}
