package dingtalk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestPlatform is a local server that fakes the platform's token and
// identity endpoints, which makes writing tests much easier.  It counts
// the requests reaching each endpoint, so tests can assert how many
// refreshes and lookups an operation really performed, and it can be told
// to fail upcoming calls with chosen platform codes.
type TestPlatform struct {
	httpServer *httptest.Server
	t          *testing.T

	mu               sync.Mutex
	clientID         string
	clientSecret     string
	tokenTTL         time.Duration
	issuedTokens     []string
	tokenErrStatus   int
	nextUserInfoErrs []int

	expectedAuthCode string
	replyUnionID     string
	replyUserID      string
	replyName        string
	replyMobile      string
	replyEmail       string
	employeeCount    int
	replyOrg         Organization

	tokenRequests    int
	userInfoRequests int
	profileRequests  int
	contactRequests  int
}

// StartTestPlatform creates a disposable TestPlatform.  The server is
// closed via t.Cleanup.
func StartTestPlatform(t *testing.T) *TestPlatform {
	t.Helper()
	p := &TestPlatform{
		t:            t,
		tokenTTL:     7200 * time.Second,
		replyUnionID: "test-union-id",
		replyUserID:  "test-user-id",
		replyName:    "Test User",
	}
	p.httpServer = httptest.NewServer(p)
	t.Cleanup(p.httpServer.Close)
	return p
}

// URL is the base URL of the running TestPlatform.  It serves both the
// v1.0 and the legacy endpoint conventions, so pass it twice to
// WithBaseURLs.
func (p *TestPlatform) URL() string {
	return p.httpServer.URL
}

// SetClientCreds configures the app credentials the token endpoint
// requires.  Unset means any credentials are accepted.
func (p *TestPlatform) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetTokenTTL configures the expires_in the token endpoint declares.
func (p *TestPlatform) SetTokenTTL(ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenTTL = ttl
}

// SetExpectedAuthCode configures the only code the user-info-by-code
// endpoint accepts.  Unset means any code is accepted.
func (p *TestPlatform) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetReplyUserInfo configures the identity every lookup endpoint replies
// with.
func (p *TestPlatform) SetReplyUserInfo(unionID, userID, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUnionID = unionID
	p.replyUserID = userID
	p.replyName = name
}

// SetReplyContactDetails configures the extended fields of contact and
// profile replies.
func (p *TestPlatform) SetReplyContactDetails(mobile, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyMobile = mobile
	p.replyEmail = email
}

// SetEmployeeCount configures the employee-count endpoint's reply.
func (p *TestPlatform) SetEmployeeCount(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.employeeCount = n
}

// SetOrganization configures the organization-info endpoint's reply.
func (p *TestPlatform) SetOrganization(org Organization) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyOrg = org
}

// QueueUserInfoErrors makes the next user-info calls fail with the given
// platform codes, one per call, before normal replies resume.
func (p *TestPlatform) QueueUserInfoErrors(codes ...int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextUserInfoErrs = append(p.nextUserInfoErrs, codes...)
}

// FailTokenWithStatus makes the token endpoint fail with the given HTTP
// status.  Zero restores normal behavior.
func (p *TestPlatform) FailTokenWithStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenErrStatus = status
}

// TokenRequestCount reports how many requests reached the token endpoint.
func (p *TestPlatform) TokenRequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

// UserInfoRequestCount reports how many requests reached the
// user-info-by-code endpoint.
func (p *TestPlatform) UserInfoRequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userInfoRequests
}

// ProfileRequestCount reports how many requests reached the
// employee-profile endpoint.
func (p *TestPlatform) ProfileRequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profileRequests
}

// ContactRequestCount reports how many requests reached the contact-user
// endpoint.
func (p *TestPlatform) ContactRequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contactRequests
}

// IssuedTokens returns every access token value the token endpoint has
// handed out, in order.
func (p *TestPlatform) IssuedTokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.issuedTokens...)
}

// ServeHTTP implements the fake platform.  Not intended to be called
// directly.
func (p *TestPlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/v1.0/oauth2/") && strings.HasSuffix(r.URL.Path, "/token"),
		r.URL.Path == "/v1.0/oauth2/token":
		p.handleToken(w, r)
	case r.URL.Path == "/topapi/v2/user/getuserinfo":
		p.handleUserInfoByCode(w, r)
	case r.URL.Path == "/topapi/v2/user/get":
		p.handleProfile(w, r)
	case r.URL.Path == "/topapi/user/count":
		p.handleEmployeeCount(w, r)
	case strings.HasPrefix(r.URL.Path, "/v1.0/contact/users/"):
		p.handleContactUser(w, r)
	case strings.HasPrefix(r.URL.Path, "/v1.0/contact/organizations/authInfos"):
		p.handleOrganization(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestPlatform) handleToken(w http.ResponseWriter, r *http.Request) {
	p.tokenRequests++
	if p.tokenErrStatus != 0 {
		writeTestJSON(p.t, w, p.tokenErrStatus, map[string]string{
			"code":    "invalidClient",
			"message": "credential exchange rejected",
		})
		return
	}
	var req struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		GrantType    string `json:"grant_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTestJSON(p.t, w, http.StatusBadRequest, map[string]string{
			"code":    "invalidRequest",
			"message": "malformed token request",
		})
		return
	}
	if p.clientID != "" && (req.ClientID != p.clientID || req.ClientSecret != p.clientSecret) {
		writeTestJSON(p.t, w, http.StatusBadRequest, map[string]string{
			"code":    "invalidClient",
			"message": "invalid client credential",
		})
		return
	}
	token := fmt.Sprintf("test-access-token-%d", p.tokenRequests)
	p.issuedTokens = append(p.issuedTokens, token)
	writeTestJSON(p.t, w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"expires_in":   int64(p.tokenTTL / time.Second),
	})
}

// currentToken is the most recently issued token; older tokens are treated
// as expired.  Callers must hold p.mu.
func (p *TestPlatform) currentToken() string {
	if len(p.issuedTokens) == 0 {
		return ""
	}
	return p.issuedTokens[len(p.issuedTokens)-1]
}

func (p *TestPlatform) handleUserInfoByCode(w http.ResponseWriter, r *http.Request) {
	p.userInfoRequests++
	if len(p.nextUserInfoErrs) > 0 {
		code := p.nextUserInfoErrs[0]
		p.nextUserInfoErrs = p.nextUserInfoErrs[1:]
		writeTestEnvelope(p.t, w, code, "mock platform failure", nil)
		return
	}
	if r.URL.Query().Get("access_token") != p.currentToken() {
		writeTestEnvelope(p.t, w, 40014, "invalid access token", nil)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeTestEnvelope(p.t, w, 40029, "invalid code", nil)
		return
	}
	if p.expectedAuthCode != "" && req.Code != p.expectedAuthCode {
		writeTestEnvelope(p.t, w, 40029, "invalid code", nil)
		return
	}
	writeTestEnvelope(p.t, w, 0, "ok", map[string]interface{}{
		"unionid": p.replyUnionID,
		"userid":  p.replyUserID,
		"name":    p.replyName,
	})
}

func (p *TestPlatform) handleProfile(w http.ResponseWriter, r *http.Request) {
	p.profileRequests++
	if r.URL.Query().Get("access_token") != p.currentToken() {
		writeTestEnvelope(p.t, w, 40014, "invalid access token", nil)
		return
	}
	var req struct {
		UserID string `json:"userid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID != p.replyUserID {
		writeTestEnvelope(p.t, w, 60121, "user not found", nil)
		return
	}
	writeTestEnvelope(p.t, w, 0, "ok", map[string]interface{}{
		"unionid":   p.replyUnionID,
		"userid":    p.replyUserID,
		"name":      p.replyName,
		"mobile":    p.replyMobile,
		"org_email": p.replyEmail,
	})
}

func (p *TestPlatform) handleEmployeeCount(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("access_token") != p.currentToken() {
		writeTestEnvelope(p.t, w, 40014, "invalid access token", nil)
		return
	}
	writeTestEnvelope(p.t, w, 0, "ok", map[string]interface{}{
		"count": p.employeeCount,
	})
}

func (p *TestPlatform) handleContactUser(w http.ResponseWriter, r *http.Request) {
	p.contactRequests++
	if r.Header.Get(accessTokenHeader) != p.currentToken() {
		writeTestJSON(p.t, w, http.StatusUnauthorized, map[string]string{
			"code":    "InvalidAuthentication",
			"message": "invalid access token",
		})
		return
	}
	unionID := strings.TrimPrefix(r.URL.Path, "/v1.0/contact/users/")
	writeTestJSON(p.t, w, http.StatusOK, map[string]interface{}{
		"nick":      p.replyName,
		"unionId":   unionID,
		"openId":    "test-open-id",
		"email":     p.replyEmail,
		"mobile":    p.replyMobile,
		"stateCode": "86",
	})
}

func (p *TestPlatform) handleOrganization(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(accessTokenHeader) != p.currentToken() {
		writeTestJSON(p.t, w, http.StatusUnauthorized, map[string]string{
			"code":    "InvalidAuthentication",
			"message": "invalid access token",
		})
		return
	}
	writeTestJSON(p.t, w, http.StatusOK, p.replyOrg)
}

func writeTestEnvelope(t *testing.T, w http.ResponseWriter, errcode int, errmsg string, result interface{}) {
	t.Helper()
	body := map[string]interface{}{
		"errcode":    errcode,
		"errmsg":     errmsg,
		"request_id": "test-request-id",
	}
	if result != nil {
		body["result"] = result
	}
	writeTestJSON(t, w, http.StatusOK, body)
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, body interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Fatalf("unable to encode test response: %v", err)
	}
}
