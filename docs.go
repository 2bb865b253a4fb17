// dap (DingTalk authentication packages) provides client-side support for
// the DingTalk open platform's login flows: the user-consent
// authorization-code flow and the corporate silent-login flow, along with
// managed access-token acquisition and caching.
//
// See README.md
package dap
