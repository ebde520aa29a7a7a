package actorcontext

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
)

// ResolveActorID extracts the authenticated user id from the request context.
func ResolveActorID(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

// RequireOwner refuses access unless the caller created the resource.
func RequireOwner(actorID, ownerID uuid.UUID) error {
	if actorID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}
	return nil
}
