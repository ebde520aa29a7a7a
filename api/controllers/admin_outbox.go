package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/api/responses"
	"github.com/angelmondragon/listing-qa-backend/api/validators"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
	"github.com/angelmondragon/listing-qa-backend/pkg/outbox"
	"github.com/angelmondragon/listing-qa-backend/pkg/pagination"
)

// DeadLetters is the operator surface over events the publisher gave up on.
type DeadLetters interface {
	List(ctx context.Context, params pagination.Params) (pagination.Page[models.OutboxDLQ], error)
	Requeue(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

type deadLetterResponse struct {
	EventID      uuid.UUID                  `json:"event_id"`
	EventType    enums.OutboxEventType      `json:"event_type"`
	AggregateID  uuid.UUID                  `json:"aggregate_id"`
	ErrorReason  enums.OutboxDLQErrorReason `json:"error_reason"`
	ErrorMessage *string                    `json:"error_message,omitempty"`
	AttemptCount int                        `json:"attempt_count"`
	FailedAt     time.Time                  `json:"failed_at"`
}

func toDeadLetterResponse(row models.OutboxDLQ) deadLetterResponse {
	return deadLetterResponse{
		EventID:      row.EventID,
		EventType:    row.EventType,
		AggregateID:  row.AggregateID,
		ErrorReason:  row.ErrorReason,
		ErrorMessage: row.ErrorMessage,
		AttemptCount: row.AttemptCount,
		FailedAt:     row.FailedAt,
	}
}

// AdminListDeadLetters pages through dead-lettered outbox events.
func AdminListDeadLetters(store DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := store.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}

		responses.WriteSuccess(w, pagination.MapPage(page, toDeadLetterResponse))
	}
}

// AdminRequeueDeadLetter hands a dead-lettered event back to the publisher
// with a fresh attempt budget.
func AdminRequeueDeadLetter(store DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := store.Requeue(r.Context(), eventID)
		switch {
		case errors.Is(err, outbox.ErrDeadLetterNotFound):
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found"))
			return
		case errors.Is(err, outbox.ErrEventNotRequeueable):
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "event was already published or pruned"))
			return
		case err != nil:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "requeue dead letter"))
			return
		}

		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"event_id":   entry.EventID.String(),
				"event_type": entry.EventType,
			})
			logg.Info(ctx, "outbox.dlq.requeued")
		}
		responses.WriteSuccess(w, toDeadLetterResponse(*entry))
	}
}
