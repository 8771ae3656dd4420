package enums

import "fmt"

// AuditAction names the security-relevant operations recorded in the audit log.
type AuditAction string

const (
	AuditActionLogin          AuditAction = "login"
	AuditActionLogout         AuditAction = "logout"
	AuditActionForgotPassword AuditAction = "forgot_password"
	AuditActionDeleteBuild    AuditAction = "delete_build"
)

var validAuditActions = []AuditAction{
	AuditActionLogin,
	AuditActionLogout,
	AuditActionForgotPassword,
	AuditActionDeleteBuild,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}

// AuditStatus records the outcome of an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess     AuditStatus = "success"
	AuditStatusFailed      AuditStatus = "failed"
	AuditStatusRateLimited AuditStatus = "rate_limited"
)

var validAuditStatuses = []AuditStatus{
	AuditStatusSuccess,
	AuditStatusFailed,
	AuditStatusRateLimited,
}

// String implements fmt.Stringer.
func (s AuditStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AuditStatus.
func (s AuditStatus) IsValid() bool {
	for _, candidate := range validAuditStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAuditStatus converts raw input into an AuditStatus.
func ParseAuditStatus(value string) (AuditStatus, error) {
	for _, candidate := range validAuditStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit status %q", value)
}
