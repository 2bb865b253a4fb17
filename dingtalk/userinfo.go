package dingtalk

// UserInfo is the normalized identity result of the login flows.  It is
// rebuilt from the platform response on every call; nothing is retained
// between calls.  Fields beyond UnionID/UserID/Name are extended fields,
// populated when the flow that produced the result supplies them.
type UserInfo struct {
	// UnionID identifies the user across all of the developer's apps
	UnionID string

	// UserID identifies the user within one organization.  Empty for
	// results produced by contact lookups outside an organization scope.
	UserID string

	// Name is the user's display name
	Name string

	// OpenID identifies the user within one app
	OpenID string

	Email     string
	Mobile    string
	StateCode string
	Avatar    string
}

// Organization is an organization's authentication information, as
// returned by GetOrganization.
type Organization struct {
	Name                string `json:"orgName"`
	LicenseURL          string `json:"licenseUrl"`
	RegistrationNumber  string `json:"registrationNum"`
	UnifiedSocialCredit string `json:"unifiedSocialCredit"`
	OrganizationCode    string `json:"organizationCode"`
	LegalPerson         string `json:"legalPerson"`
	LicenseOrgName      string `json:"licenseOrgName"`
	AuthLevel           int    `json:"authLevel"`
}

// userGetByCodeResult is the user-info-by-code response result member.
type userGetByCodeResult struct {
	UnionID  string `json:"unionid"`
	UserID   string `json:"userid"`
	Name     string `json:"name"`
	DeviceID string `json:"device_id"`
	IsAdmin  bool   `json:"sys"`
	SysLevel int    `json:"sys_level"`
}

// userProfileResult is the employee-profile response result member.  Only
// the fields the package normalizes are declared.
type userProfileResult struct {
	UnionID   string `json:"unionid"`
	UserID    string `json:"userid"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email"`
	OrgEmail  string `json:"org_email"`
	StateCode string `json:"state_code"`
	Title     string `json:"title"`
	JobNumber string `json:"job_number"`
	Active    bool   `json:"active"`
	Admin     bool   `json:"admin"`
	Boss      bool   `json:"boss"`
}

// contactUserResult mirrors the v1.0 contact-user response body.
type contactUserResult struct {
	Nick      string `json:"nick"`
	UnionID   string `json:"unionId"`
	OpenID    string `json:"openId"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	StateCode string `json:"stateCode"`
	Visitor   bool   `json:"visitor"`
}
