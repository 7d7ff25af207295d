package types

// OtpStatus is the OTP state machine value.  pending is the only
// non-terminal state; verified and failed are never left.
type OtpStatus string

const (
	OtpPending  OtpStatus = "pending"
	OtpVerified OtpStatus = "verified"
	OtpFailed   OtpStatus = "failed"
)

func ParseOtpStatus(s string) (OtpStatus, bool) {
	switch OtpStatus(s) {
	case OtpPending, OtpVerified, OtpFailed:
		return OtpStatus(s), true
	}
	return "", false
}

func (s OtpStatus) String() string { return string(s) }

// Terminal reports whether no further transition may leave this status.
func (s OtpStatus) Terminal() bool { return s == OtpVerified || s == OtpFailed }

// Verification outcome reasons.  A verification either succeeds or fails
// closed with one of these.
const (
	ReasonVerified     = "verified"
	ReasonNoActiveCode = "no_active_code"
	ReasonExpired      = "expired"
	ReasonCodeMismatch = "code_mismatch"
	ReasonSuperseded   = "superseded"
)

type VerificationResult struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
}

type IssueRequest struct {
	DeviceID string `json:"device_id,omitempty"`
}

type IssueResponse struct {
	OK        bool   `json:"ok"`
	ID        int64  `json:"id"`
	Otp       string `json:"otp"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

type VerifyRequest struct {
	DeviceID string `json:"device_id,omitempty"`
	Code     string `json:"code"`
}

type VerifyResponse struct {
	OK         bool   `json:"ok"`
	Verified   bool   `json:"verified"`
	Reason     string `json:"reason"`
	ServerTime string `json:"server_time"`
}
