package dingtalk

import (
	"context"
	"fmt"
	"net/url"
)

// SetCorpID returns a client scoped to the given organization.  The
// receiver is unchanged: the derived client carries its own copy of the
// config and its own token cache, since corp-scoped tokens are distinct
// credentials.  The derived client shares the receiver's HTTP transport.
func (c *Client) SetCorpID(corpID string) (*Client, error) {
	const op = "dingtalk.(Client).SetCorpID"
	if corpID == "" {
		return nil, fmt.Errorf("%s: corp id is empty: %w", op, ErrInvalidParameter)
	}
	cfg := c.config.clone()
	cfg.CorpID = corpID
	derived := &Client{
		config: cfg,
		tr:     c.tr,
		logger: c.logger,
	}
	derived.keeper = newTokenKeeper(derived.fetchToken, cfg.ExpirySkew, cfg.NowFunc)
	return derived, nil
}

// GetUserInfo resolves the identity behind a corporate silent-login code.
// It requires a corp-scoped client (see SetCorpID or WithCorpID); when no
// corp id is configured it fails with ErrMissingCorpID before any request
// is made.
//
// The platform resolves silent logins in two steps (login code to userid,
// then userid to profile).  The pair is treated as one identity call for
// the invalid-token policy: one forced refresh and one rerun of the pair,
// at most.
func (c *Client) GetUserInfo(ctx context.Context, loginCode string) (*UserInfo, error) {
	const op = "dingtalk.(Client).GetUserInfo"
	if c.config.CorpID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCorpID)
	}
	if loginCode == "" {
		return nil, fmt.Errorf("%s: login code is empty: %w", op, ErrInvalidParameter)
	}
	var profile userProfileResult
	err := c.callWithToken(ctx, func(tok Token) error {
		profile = userProfileResult{}
		var byCode userGetByCodeResult
		if err := c.tr.postOAPI(ctx, "/topapi/v2/user/getuserinfo", tok.AccessToken, map[string]string{"code": loginCode}, &byCode); err != nil {
			return err
		}
		return c.tr.postOAPI(ctx, "/topapi/v2/user/get", tok.AccessToken, map[string]string{
			"userid":   byCode.UserID,
			"language": "zh_CN",
		}, &profile)
	})
	if err != nil {
		return nil, identityErr(op, err)
	}
	email := profile.OrgEmail
	if email == "" {
		email = profile.Email
	}
	return &UserInfo{
		UnionID:   profile.UnionID,
		UserID:    profile.UserID,
		Name:      profile.Name,
		Email:     email,
		Mobile:    profile.Mobile,
		StateCode: profile.StateCode,
		Avatar:    profile.Avatar,
	}, nil
}

// GetOrganization retrieves the authentication information of the client's
// organization.
func (c *Client) GetOrganization(ctx context.Context) (*Organization, error) {
	const op = "dingtalk.(Client).GetOrganization"
	if c.config.CorpID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCorpID)
	}
	var org Organization
	err := c.callWithToken(ctx, func(tok Token) error {
		org = Organization{}
		path := "/v1.0/contact/organizations/authInfos?targetCorpId=" + url.QueryEscape(c.config.CorpID)
		return c.tr.getAPI(ctx, path, tok.AccessToken, &org)
	})
	if err != nil {
		return nil, identityErr(op, err)
	}
	return &org, nil
}

// employeeCountResult is the employee-count response result member.
type employeeCountResult struct {
	Count int `json:"count"`
}

// GetEmployeeCount retrieves the organization's employee count.  When
// onlyActive is true, only activated accounts are counted.
func (c *Client) GetEmployeeCount(ctx context.Context, onlyActive bool) (int, error) {
	const op = "dingtalk.(Client).GetEmployeeCount"
	if c.config.CorpID == "" {
		return 0, fmt.Errorf("%s: %w", op, ErrMissingCorpID)
	}
	var res employeeCountResult
	err := c.callWithToken(ctx, func(tok Token) error {
		res = employeeCountResult{}
		return c.tr.postOAPI(ctx, "/topapi/user/count", tok.AccessToken, map[string]bool{"only_active": onlyActive}, &res)
	})
	if err != nil {
		return 0, identityErr(op, err)
	}
	return res.Count, nil
}
