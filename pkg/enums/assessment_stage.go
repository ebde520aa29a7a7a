package enums

import "fmt"

// RejectionStage maps to the rejection_stage enum in Postgres.
type RejectionStage string

const (
	RejectionStageDigital  RejectionStage = "digital"
	RejectionStagePhysical RejectionStage = "physical"
)

var validRejectionStages = []RejectionStage{
	RejectionStageDigital,
	RejectionStagePhysical,
}

// String implements fmt.Stringer.
func (r RejectionStage) String() string {
	return string(r)
}

// IsValid reports whether the value matches the canonical rejection_stage enum.
func (r RejectionStage) IsValid() bool {
	for _, candidate := range validRejectionStages {
		if candidate == r {
			return true
		}
	}
	return false
}

// ReviewStatus is the review status a rejection at this stage leaves from.
func (r RejectionStage) ReviewStatus() AssessmentStatus {
	if r == RejectionStagePhysical {
		return AssessmentStatusPendingPhysicalReview
	}
	return AssessmentStatusPendingDigitalReview
}

// ParseRejectionStage converts raw input into RejectionStage.
func ParseRejectionStage(value string) (RejectionStage, error) {
	for _, candidate := range validRejectionStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rejection stage %q", value)
}

// ApprovalStage tags an approval record with the review it concluded.
type ApprovalStage string

const (
	ApprovalStageDigital  ApprovalStage = "digital"
	ApprovalStagePhysical ApprovalStage = "physical"
	ApprovalStageBypass   ApprovalStage = "bypass"
)

var validApprovalStages = []ApprovalStage{
	ApprovalStageDigital,
	ApprovalStagePhysical,
	ApprovalStageBypass,
}

// String implements fmt.Stringer.
func (a ApprovalStage) String() string {
	return string(a)
}

// IsValid reports whether the value matches the canonical approval_stage enum.
func (a ApprovalStage) IsValid() bool {
	for _, candidate := range validApprovalStages {
		if candidate == a {
			return true
		}
	}
	return false
}
