// Package dingtalk provides support for authenticating users against the
// DingTalk open platform. It supports the user-consent authorization-code
// flow and the corporate silent-login flow, and manages the short-lived
// platform access token both flows depend on: tokens are cached, refreshed
// before their expiry margin is reached, and refreshed at most once at a
// time no matter how many callers need one.
package dingtalk
