package dingtalk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	sdkHttp "github.com/dingtalk-contrib/dap/sdk/http"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

const (
	// DefaultAPIBaseURL is the platform's v1.0 API host
	DefaultAPIBaseURL = "https://api.dingtalk.com"

	// DefaultOAPIBaseURL is the platform's legacy (oapi) API host
	DefaultOAPIBaseURL = "https://oapi.dingtalk.com"

	// DefaultAuthBaseURL is the platform's authorization host used for the
	// consent-flow redirect
	DefaultAuthBaseURL = "https://login.dingtalk.com"
)

// DefaultInvalidTokenCodes are the platform error codes meaning the access
// token presented is invalid or expired.  They are configuration, not a
// protocol constant: override with WithInvalidTokenCodes if the platform's
// published contract changes.
var DefaultInvalidTokenCodes = []int{40014}

type AppSecret string

// RedactedAppSecret is the redacted string or json for an app secret
const RedactedAppSecret = "[REDACTED: app secret]"

// String will redact the app secret
func (s AppSecret) String() string {
	return RedactedAppSecret
}

// MarshalJSON will redact the app secret
func (s AppSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAppSecret)
}

// Config represents the configuration for a platform application identity.
// It is immutable once a Client has been created from it; corp scoping is
// done by deriving a new client (see Client.SetCorpID), never by mutating a
// shared Config.
type Config struct {
	// AppID is the application id issued by the platform
	AppID string

	// AppSecret is the application secret issued by the platform.  It is
	// redacted when printed or marshaled and is never logged.
	AppSecret AppSecret

	// CorpID optionally scopes token acquisition and the silent-login flow
	// to one organization
	CorpID string

	// APIBaseURL is the v1.0 API host.  See DefaultAPIBaseURL.
	APIBaseURL string

	// OAPIBaseURL is the legacy API host.  See DefaultOAPIBaseURL.
	OAPIBaseURL string

	// AuthBaseURL is the authorization host used by AuthURL.  See
	// DefaultAuthBaseURL.
	AuthBaseURL string

	// ProviderCA is an optional CA cert to use when sending requests to the
	// platform.
	ProviderCA string

	// ExpirySkew is the safety margin subtracted from a token's declared
	// expiry, so an in-flight request never races an expiring token.  See
	// DefaultExpirySkew.
	ExpirySkew time.Duration

	// InvalidTokenCodes are the platform error codes that trigger a single
	// forced token refresh and retry of an identity call.  See
	// DefaultInvalidTokenCodes.
	InvalidTokenCodes []int

	// NowFunc is a time source for expiry checks (nil means time.Now)
	NowFunc func() time.Time

	// Logger is an optional logger
	Logger hclog.Logger
}

// NewConfig composes a new config for a platform application.
// Supported options:
//
//	WithCorpID
//	WithBaseURLs
//	WithProviderCA
//	WithExpirySkew
//	WithInvalidTokenCodes
//	WithNow
//	WithLogger
func NewConfig(appID string, appSecret AppSecret, opt ...Option) (*Config, error) {
	const op = "dingtalk.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		AppID:             appID,
		AppSecret:         appSecret,
		CorpID:            opts.withCorpID,
		APIBaseURL:        opts.withAPIBaseURL,
		OAPIBaseURL:       opts.withOAPIBaseURL,
		AuthBaseURL:       opts.withAuthBaseURL,
		ProviderCA:        opts.withProviderCA,
		ExpirySkew:        opts.withExpirySkew,
		InvalidTokenCodes: opts.withInvalidTokenCodes,
		NowFunc:           opts.withNowFunc,
		Logger:            opts.withLogger,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	return c, nil
}

// Validate the configuration.  All problems found are reported, not just
// the first.
func (c *Config) Validate() error {
	const op = "dingtalk.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.AppID == "" {
		result = multierror.Append(result, fmt.Errorf("app id is empty: %w", ErrInvalidParameter))
	}
	if c.AppSecret == "" {
		result = multierror.Append(result, fmt.Errorf("app secret is empty: %w", ErrInvalidParameter))
	}
	if c.ExpirySkew < 0 {
		result = multierror.Append(result, fmt.Errorf("expiry skew is negative: %w", ErrInvalidParameter))
	}
	for name, base := range map[string]string{
		"api base URL":  c.APIBaseURL,
		"oapi base URL": c.OAPIBaseURL,
		"auth base URL": c.AuthBaseURL,
	} {
		u, err := url.Parse(base)
		if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
			result = multierror.Append(result, fmt.Errorf("%s %q is not a valid http/https URL: %w", name, base, ErrInvalidParameter))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Now returns the current time using the config's optional NowFunc.
func (c *Config) Now() time.Time {
	if c == nil || c.NowFunc == nil {
		return time.Now()
	}
	return c.NowFunc()
}

// HTTPClient is a helper function that creates a new http client for the
// platform configured
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "dingtalk.(Config).HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// clone returns a copy of the config, so derived clients never share
// mutable state with their parent.
func (c *Config) clone() *Config {
	cp := *c
	cp.InvalidTokenCodes = append([]int(nil), c.InvalidTokenCodes...)
	return &cp
}

// isInvalidTokenCode reports whether the platform code means the presented
// access token is invalid or expired.
func (c *Config) isInvalidTokenCode(code int) bool {
	for _, v := range c.InvalidTokenCodes {
		if v == code {
			return true
		}
	}
	return false
}

// configOptions is the set of available options
type configOptions struct {
	withCorpID            string
	withAPIBaseURL        string
	withOAPIBaseURL       string
	withAuthBaseURL       string
	withProviderCA        string
	withExpirySkew        time.Duration
	withInvalidTokenCodes []int
	withNowFunc           func() time.Time
	withLogger            hclog.Logger
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{
		withAPIBaseURL:        DefaultAPIBaseURL,
		withOAPIBaseURL:       DefaultOAPIBaseURL,
		withAuthBaseURL:       DefaultAuthBaseURL,
		withExpirySkew:        DefaultExpirySkew,
		withInvalidTokenCodes: append([]int(nil), DefaultInvalidTokenCodes...),
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithCorpID provides an optional corporate id, scoping the config to one
// organization.
func WithCorpID(corpID string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withCorpID = corpID
		}
	}
}

// WithBaseURLs overrides the platform's v1.0 and legacy API hosts.  Mostly
// useful with the package's TestPlatform.
func WithBaseURLs(apiBaseURL, oapiBaseURL string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAPIBaseURL = apiBaseURL
			o.withOAPIBaseURL = oapiBaseURL
		}
	}
}

// WithProviderCA provides an optional CA cert for the config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithInvalidTokenCodes overrides the platform error codes treated as
// "token invalid/expired" for the retry-once policy.
func WithInvalidTokenCodes(codes ...int) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withInvalidTokenCodes = codes
		}
	}
}

// WithLogger provides an optional logger for the config
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withLogger = l
		}
	}
}
