package enums

import "fmt"

// AssessmentStatus maps to the assessment_status enum in Postgres.
type AssessmentStatus string

const (
	AssessmentStatusPendingDigitalReview  AssessmentStatus = "pending_digital_review"
	AssessmentStatusWaitingForSample      AssessmentStatus = "waiting_for_sample"
	AssessmentStatusPendingPhysicalReview AssessmentStatus = "pending_physical_review"
	AssessmentStatusForRevision           AssessmentStatus = "for_revision"
	AssessmentStatusRejected              AssessmentStatus = "rejected"
	AssessmentStatusVerified              AssessmentStatus = "verified"
)

var validAssessmentStatuses = []AssessmentStatus{
	AssessmentStatusPendingDigitalReview,
	AssessmentStatusWaitingForSample,
	AssessmentStatusPendingPhysicalReview,
	AssessmentStatusForRevision,
	AssessmentStatusRejected,
	AssessmentStatusVerified,
}

// AssessmentStatuses returns every canonical status in lifecycle order.
func AssessmentStatuses() []AssessmentStatus {
	out := make([]AssessmentStatus, len(validAssessmentStatuses))
	copy(out, validAssessmentStatuses)
	return out
}

// String implements fmt.Stringer.
func (s AssessmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical assessment_status enum.
func (s AssessmentStatus) IsValid() bool {
	for _, candidate := range validAssessmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves this status.
func (s AssessmentStatus) IsTerminal() bool {
	return s == AssessmentStatusRejected || s == AssessmentStatusVerified
}

// Next returns the status reached by applying action from s.
func (s AssessmentStatus) Next(action AssessmentAction) (AssessmentStatus, bool) {
	edges, ok := assessmentTransitions[s]
	if !ok {
		return "", false
	}
	to, ok := edges[action]
	return to, ok
}

// ParseAssessmentStatus converts raw input into AssessmentStatus.
func ParseAssessmentStatus(value string) (AssessmentStatus, error) {
	for _, candidate := range validAssessmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assessment status %q", value)
}

// AssessmentAction names a trigger in the assessment workflow.
type AssessmentAction string

const (
	AssessmentActionApproveDigital  AssessmentAction = "approve_digital"
	AssessmentActionRequestRevision AssessmentAction = "request_revision"
	AssessmentActionReject          AssessmentAction = "reject"
	AssessmentActionSubmitSample    AssessmentAction = "submit_sample"
	AssessmentActionApprovePhysical AssessmentAction = "approve_physical"
	AssessmentActionResubmit        AssessmentAction = "resubmit"
)

var validAssessmentActions = []AssessmentAction{
	AssessmentActionApproveDigital,
	AssessmentActionRequestRevision,
	AssessmentActionReject,
	AssessmentActionSubmitSample,
	AssessmentActionApprovePhysical,
	AssessmentActionResubmit,
}

// String implements fmt.Stringer.
func (a AssessmentAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AssessmentAction.
func (a AssessmentAction) IsValid() bool {
	for _, candidate := range validAssessmentActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// Actor returns the role allowed to trigger the action.
func (a AssessmentAction) Actor() ActorRole {
	switch a {
	case AssessmentActionSubmitSample, AssessmentActionResubmit:
		return ActorRoleSeller
	default:
		return ActorRoleAdmin
	}
}

// Terminal statuses have no entry.
var assessmentTransitions = map[AssessmentStatus]map[AssessmentAction]AssessmentStatus{
	AssessmentStatusPendingDigitalReview: {
		AssessmentActionApproveDigital:  AssessmentStatusWaitingForSample,
		AssessmentActionRequestRevision: AssessmentStatusForRevision,
		AssessmentActionReject:          AssessmentStatusRejected,
	},
	AssessmentStatusWaitingForSample: {
		AssessmentActionSubmitSample: AssessmentStatusPendingPhysicalReview,
	},
	AssessmentStatusPendingPhysicalReview: {
		AssessmentActionApprovePhysical: AssessmentStatusVerified,
		AssessmentActionReject:          AssessmentStatusRejected,
		AssessmentActionRequestRevision: AssessmentStatusForRevision,
	},
	AssessmentStatusForRevision: {
		AssessmentActionResubmit: AssessmentStatusPendingDigitalReview,
	},
}

// SourceStatuses lists every status from which action is legal, in lifecycle order.
func SourceStatuses(action AssessmentAction) []AssessmentStatus {
	var out []AssessmentStatus
	for _, status := range validAssessmentStatuses {
		if _, ok := status.Next(action); ok {
			out = append(out, status)
		}
	}
	return out
}
