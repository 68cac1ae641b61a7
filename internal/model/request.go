package model

import "encoding/json"

// LoginMode selects how pre-test authentication is seeded.
type LoginMode string

const (
	LoginModeSocial LoginMode = "social"
	LoginModeOTP    LoginMode = "otp"
)

// StorageType selects where OTP seeding writes its payload.
type StorageType string

const (
	StorageLocalStorage   StorageType = "localStorage"
	StorageSessionStorage StorageType = "sessionStorage"
	StorageCookies        StorageType = "cookies"
)

// BrowserName selects which engine the Session Orchestrator launches.
type BrowserName string

const (
	BrowserChromium BrowserName = "chromium"
	BrowserFirefox  BrowserName = "firefox"
	BrowserWebKit   BrowserName = "webkit"
)

// SocialAuth names the auth test case to run before the real test(s) when
// LoginMode is social.
type SocialAuth struct {
	AuthTestCaseID string `json:"authTestCaseId"`
}

// OTPConfig describes how to seed storage before running under OTP login mode.
type OTPConfig struct {
	StorageType StorageType     `json:"storageType"`
	Object      json.RawMessage `json:"object,omitempty"`
}

// Request is the payload of POST /api/run-automation.
type Request struct {
	TestCaseID    string      `json:"testCaseId,omitempty"`
	ModuleIDs     []string    `json:"moduleIds,omitempty"`
	LoginRequired bool        `json:"loginRequired,omitempty"`
	LoginMode     LoginMode   `json:"loginMode,omitempty"`
	SocialAuth    *SocialAuth `json:"socialAuth,omitempty"`
	OTP           *OTPConfig  `json:"otp,omitempty"`
	BrowserName   BrowserName `json:"browserName"`
	Headless      *bool       `json:"headless,omitempty"`
	UserID        string      `json:"userId,omitempty"`
	ProjectID     string      `json:"projectId,omitempty"`
}

// IsBatch reports whether the request targets a module/project filter
// rather than a single test case.
func (r Request) IsBatch() bool {
	return len(r.ModuleIDs) > 0
}

// HeadlessOrDefault returns the headless flag, defaulting to true.
func (r Request) HeadlessOrDefault() bool {
	if r.Headless == nil {
		return true
	}
	return *r.Headless
}

const defaultOTPObject = "{}"

// Normalize applies the §4.7(1) request-validation defaulting rule: an
// OTP login with no otp payload gets the documented zero-value default.
func (r *Request) Normalize() {
	if r.LoginRequired && r.LoginMode == LoginModeOTP && r.OTP == nil {
		r.OTP = &OTPConfig{
			StorageType: StorageLocalStorage,
			Object:      json.RawMessage(defaultOTPObject),
		}
	}
}

// Validate rejects payloads that name neither a single test case nor a
// non-empty module filter.
func (r Request) Validate() error {
	if r.TestCaseID == "" && len(r.ModuleIDs) == 0 {
		return ErrInvalidRequest
	}
	if r.LoginRequired && r.LoginMode == LoginModeSocial {
		if r.SocialAuth == nil || r.SocialAuth.AuthTestCaseID == "" {
			return ErrMissingSocialAuth
		}
	}
	return nil
}
