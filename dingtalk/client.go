package dingtalk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// Client provides the platform's login flows for one application identity.
// A Client is safe for concurrent use: the token cache serializes
// refreshes while cache hits proceed without blocking on I/O.
type Client struct {
	config *Config
	tr     *transport
	keeper *tokenKeeper
	logger hclog.Logger
}

// NewClient creates a Client from the config.  The config is copied; later
// changes to it do not affect the client.
func NewClient(c *Config) (*Client, error) {
	const op = "dingtalk.NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	httpClient, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger := c.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	client := &Client{
		config: c.clone(),
		logger: logger,
		tr: &transport{
			client: httpClient,
			api:    c.APIBaseURL,
			oapi:   c.OAPIBaseURL,
			logger: logger,
		},
	}
	client.keeper = newTokenKeeper(client.fetchToken, c.ExpirySkew, c.NowFunc)
	return client, nil
}

// tokenResponse is the token endpoint's published response shape.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// fetchToken performs one credential exchange with the platform's token
// endpoint.  Called by the client's token keeper, never directly.
func (c *Client) fetchToken(ctx context.Context) (Token, error) {
	const op = "dingtalk.(Client).fetchToken"
	path := "/v1.0/oauth2/token"
	if c.config.CorpID != "" {
		path = fmt.Sprintf("/v1.0/oauth2/%s/token", url.PathEscape(c.config.CorpID))
	}
	body := map[string]string{
		"client_id":     c.config.AppID,
		"client_secret": string(c.config.AppSecret),
		"grant_type":    "client_credentials",
	}
	var res tokenResponse
	if err := c.tr.postAPI(ctx, path, "", body, &res); err != nil {
		return Token{}, fmt.Errorf("%s: %w: %w", op, ErrTokenFetch, err)
	}
	if res.AccessToken == "" {
		return Token{}, fmt.Errorf("%s: token response has no access_token: %w", op, ErrTokenFetch)
	}
	c.logger.Debug("access token refreshed", "corp_id", c.config.CorpID, "expires_in", res.ExpiresIn)
	return Token{
		AccessToken: AccessToken(res.AccessToken),
		Expiry:      c.config.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}, nil
}

// AuthURL generates the URL that starts the user-consent
// authorization-code flow: the user is sent to it, consents, and the
// platform redirects back to callbackURL with a one-time code.  No
// requests are made; the URL is built from the config alone.
//
// The callbackURL must be a valid http/https URL.  When no WithState
// option is given an opaque state id is generated.
// Supported options: WithState
func (c *Client) AuthURL(callbackURL string, opt ...Option) (string, error) {
	const op = "dingtalk.(Client).AuthURL"
	opts := getAuthURLOpts(opt...)
	u, err := url.Parse(callbackURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return "", fmt.Errorf("%s: callback URL %q is not a valid http/https URL: %w", op, callbackURL, ErrInvalidParameter)
	}
	state := opts.withState
	if state == "" {
		state, err = NewID("st")
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
	oauthConfig := oauth2.Config{
		ClientID:    c.config.AppID,
		RedirectURL: callbackURL,
		Scopes:      []string{"openid", "corpid"},
		Endpoint: oauth2.Endpoint{
			AuthURL: c.config.AuthBaseURL + "/oauth2/auth",
		},
	}
	return oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// GetContactUserInfo resolves the identity behind an authorization code
// produced by the consent flow started with AuthURL.
//
// When the platform reports the client's access token invalid, the cached
// token is discarded, refreshed once and the lookup retried once; the
// error of a failed retry is the one surfaced.
func (c *Client) GetContactUserInfo(ctx context.Context, authCode string) (*UserInfo, error) {
	const op = "dingtalk.(Client).GetContactUserInfo"
	if authCode == "" {
		return nil, fmt.Errorf("%s: auth code is empty: %w", op, ErrInvalidParameter)
	}
	var res userGetByCodeResult
	err := c.callWithToken(ctx, func(tok Token) error {
		res = userGetByCodeResult{}
		return c.tr.postOAPI(ctx, "/topapi/v2/user/getuserinfo", tok.AccessToken, map[string]string{"code": authCode}, &res)
	})
	if err != nil {
		return nil, identityErr(op, err)
	}
	return &UserInfo{
		UnionID: res.UnionID,
		UserID:  res.UserID,
		Name:    res.Name,
	}, nil
}

// GetUserByUnionID looks up a contact user's identity by union id.
func (c *Client) GetUserByUnionID(ctx context.Context, unionID string) (*UserInfo, error) {
	const op = "dingtalk.(Client).GetUserByUnionID"
	if unionID == "" {
		return nil, fmt.Errorf("%s: union id is empty: %w", op, ErrInvalidParameter)
	}
	var res contactUserResult
	err := c.callWithToken(ctx, func(tok Token) error {
		res = contactUserResult{}
		return c.tr.getAPI(ctx, "/v1.0/contact/users/"+url.PathEscape(unionID), tok.AccessToken, &res)
	})
	if err != nil {
		return nil, identityErr(op, err)
	}
	return &UserInfo{
		UnionID:   res.UnionID,
		Name:      res.Nick,
		OpenID:    res.OpenID,
		Email:     res.Email,
		Mobile:    res.Mobile,
		StateCode: res.StateCode,
	}, nil
}

// callWithToken runs call with a valid access token.  When the platform
// answers with an invalid-token code, the cached token is force
// invalidated, refreshed, and call retried, exactly once.
func (c *Client) callWithToken(ctx context.Context, call func(Token) error) error {
	tok, err := c.keeper.Token(ctx)
	if err != nil {
		return err
	}
	err = call(tok)
	if err == nil || !c.isInvalidToken(err) {
		return err
	}
	c.logger.Debug("platform reported token invalid, refreshing once", "corp_id", c.config.CorpID)
	c.keeper.Invalidate()
	tok, err = c.keeper.Token(ctx)
	if err != nil {
		return err
	}
	return call(tok)
}

// isInvalidToken reports whether err is the platform telling us the
// presented access token is invalid or expired.
func (c *Client) isInvalidToken(err error) bool {
	var apiErr *ApiError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.HTTPStatus == http.StatusUnauthorized {
		return true
	}
	return c.config.isInvalidTokenCode(apiErr.Code)
}

// identityErr classifies a failed identity operation: token acquisition
// and configuration failures pass through unchanged, everything else is an
// identity lookup failure.
func identityErr(op string, err error) error {
	if errors.Is(err, ErrTokenFetch) || errors.Is(err, ErrMissingCorpID) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIdentityLookup, err)
}

// authURLOptions is the set of available options
type authURLOptions struct {
	withState string
}

// authURLDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func authURLDefaults() authURLOptions {
	return authURLOptions{}
}

// getAuthURLOpts gets the defaults and applies the opt overrides passed
// in.
func getAuthURLOpts(opt ...Option) authURLOptions {
	opts := authURLDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
