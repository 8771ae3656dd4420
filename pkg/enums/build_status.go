package enums

import "fmt"

// BuildStatus tracks the lifecycle of a build: a mutable draft cart until
// checkout, immutable (except for archival) afterwards.
type BuildStatus string

const (
	BuildStatusDraft      BuildStatus = "draft"
	BuildStatusCheckedOut BuildStatus = "checked_out"
)

var validBuildStatuses = []BuildStatus{
	BuildStatusDraft,
	BuildStatusCheckedOut,
}

// String implements fmt.Stringer.
func (s BuildStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BuildStatus.
func (s BuildStatus) IsValid() bool {
	for _, candidate := range validBuildStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBuildStatus converts raw input into a BuildStatus.
func ParseBuildStatus(value string) (BuildStatus, error) {
	for _, candidate := range validBuildStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid build status %q", value)
}
