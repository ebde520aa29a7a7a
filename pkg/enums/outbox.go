package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType maps to aggregate_type_enum in Postgres.
type OutboxAggregateType string

const (
	AggregateAssessment OutboxAggregateType = "assessment"
	AggregateSellerTier OutboxAggregateType = "seller_tier"
)

// OutboxEventType maps to event_type_enum in Postgres. Each value is also the
// key used to resolve a Pub/Sub topic.
type OutboxEventType string

const (
	EventAssessmentCreated       OutboxEventType = "assessment_created"
	EventAssessmentStatusChanged OutboxEventType = "assessment_status_changed"
	EventSellerTierChanged       OutboxEventType = "seller_tier_changed"
)

// OutboxDLQErrorReason maps to outbox_dlq_error_reason_enum.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var (
	aggregateTypes  = []OutboxAggregateType{AggregateAssessment, AggregateSellerTier}
	eventTypes      = []OutboxEventType{EventAssessmentCreated, EventAssessmentStatusChanged, EventSellerTierChanged}
	dlqErrorReasons = []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}
)

func (a OutboxAggregateType) IsValid() bool  { return slices.Contains(aggregateTypes, a) }
func (e OutboxEventType) IsValid() bool      { return slices.Contains(eventTypes, e) }
func (r OutboxDLQErrorReason) IsValid() bool { return slices.Contains(dlqErrorReasons, r) }

// OutboxEventTypes lists every event type in declaration order.
func OutboxEventTypes() []OutboxEventType {
	return slices.Clone(eventTypes)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum(value, aggregateTypes, "aggregate type")
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum(value, eventTypes, "event type")
}

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	return parseEnum(value, dlqErrorReasons, "dlq error reason")
}

func parseEnum[T ~string](value string, allowed []T, kind string) (T, error) {
	if v := T(value); slices.Contains(allowed, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
