package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
)

func TestOutboxEventDeadLetter(t *testing.T) {
	lastErr := "pubsub unavailable"
	event := OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventAssessmentStatusChanged,
		AggregateType: enums.AggregateAssessment,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		AttemptCount:  5,
		LastError:     &lastErr,
	}
	failedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	row := event.DeadLetter(enums.OutboxDLQReasonMaxAttempts, errors.New("deadline exceeded"), failedAt)

	require.Equal(t, uuid.Nil, row.ID)
	require.Equal(t, event.ID, row.EventID)
	require.Equal(t, event.EventType, row.EventType)
	require.Equal(t, event.AggregateID, row.AggregateID)
	require.JSONEq(t, string(event.Payload), string(row.Payload))
	require.Equal(t, 5, row.AttemptCount)
	require.Equal(t, failedAt, row.FailedAt)
	require.NotNil(t, row.ErrorMessage)
	require.Equal(t, "deadline exceeded", *row.ErrorMessage)
}

func TestOutboxEventDeadLetterWithoutCause(t *testing.T) {
	row := OutboxEvent{ID: uuid.New()}.DeadLetter(enums.OutboxDLQReasonNonRetryable, nil, time.Now())
	require.Nil(t, row.ErrorMessage)
}
