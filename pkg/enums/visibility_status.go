package enums

import "fmt"

// VisibilityStatus maps to the visibility_status enum in Postgres.
type VisibilityStatus string

const (
	VisibilityStatusPending  VisibilityStatus = "pending"
	VisibilityStatusApproved VisibilityStatus = "approved"
	VisibilityStatusRejected VisibilityStatus = "rejected"
)

var validVisibilityStatuses = []VisibilityStatus{
	VisibilityStatusPending,
	VisibilityStatusApproved,
	VisibilityStatusRejected,
}

// String implements fmt.Stringer.
func (v VisibilityStatus) String() string {
	return string(v)
}

// IsValid reports whether the value matches the canonical visibility_status enum.
func (v VisibilityStatus) IsValid() bool {
	for _, candidate := range validVisibilityStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVisibilityStatus converts raw input into VisibilityStatus.
func ParseVisibilityStatus(value string) (VisibilityStatus, error) {
	for _, candidate := range validVisibilityStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid visibility status %q", value)
}
