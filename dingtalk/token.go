package dingtalk

import (
	"encoding/json"
	"time"
)

// DefaultExpirySkew is the default safety margin subtracted from a token's
// declared expiry.  A token inside the margin is treated as expired so an
// in-flight request never presents a token the platform is about to
// reject.
const DefaultExpirySkew = 60 * time.Second

// AccessToken is a platform access token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an access token
const RedactedAccessToken = "[REDACTED: access token]"

// String will redact the token
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// Token is an access token together with its expiry instant.  Tokens are
// values: they are replaced on refresh, never mutated in place.
type Token struct {
	AccessToken AccessToken
	Expiry      time.Time
}

// Expired returns true when the token's expiry, less the skew, has passed.
// A zero Expiry never expires.
// Supported options: WithExpirySkew, WithNow
func (t Token) Expired(opt ...Option) bool {
	if t.Expiry.IsZero() {
		return false
	}
	opts := getTokenOpts(opt...)
	now := time.Now
	if opts.withNowFunc != nil {
		now = opts.withNowFunc
	}
	return !now().Before(t.Expiry.Add(-opts.withExpirySkew))
}

// Valid returns true when the token has a value and is not Expired.
// Supported options: WithExpirySkew, WithNow
func (t Token) Valid(opt ...Option) bool {
	if t.AccessToken == "" {
		return false
	}
	return !t.Expired(opt...)
}

// tokenOptions is the set of available options
type tokenOptions struct {
	withExpirySkew time.Duration
	withNowFunc    func() time.Time
}

// tokenDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func tokenDefaults() tokenOptions {
	return tokenOptions{
		withExpirySkew: DefaultExpirySkew,
	}
}

// getTokenOpts gets the defaults and applies the opt overrides passed in.
func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
