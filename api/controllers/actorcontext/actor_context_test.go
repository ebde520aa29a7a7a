package actorcontext

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
)

func TestResolveActorID(t *testing.T) {
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))

	got, err := ResolveActorID(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != userID {
		t.Fatalf("expected %s got %s", userID, got)
	}
}

func TestResolveActorIDMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ResolveActorID(req)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized got %v", err)
	}
}

func TestRequireOwner(t *testing.T) {
	owner := uuid.New()
	if err := RequireOwner(owner, owner); err != nil {
		t.Fatalf("owner refused: %v", err)
	}
	err := RequireOwner(uuid.New(), owner)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}
