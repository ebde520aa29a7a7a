package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "someone already updated this, please refresh", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeConstraint, status: http.StatusInternalServerError, publicMsg: "data integrity violation"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataExposesMessagesOnlyForClientErrors(t *testing.T) {
	for _, code := range []Code{CodeInternal, CodeDependency} {
		if MetadataFor(code).ExposeMessage {
			t.Fatalf("code %s must not expose internal messages", code)
		}
	}
	if !MetadataFor(CodeConflict).ExposeMessage {
		t.Fatalf("conflict messages should reach the client")
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestHasCodeAndErrorString(t *testing.T) {
	err := fmt.Errorf("transition: %w", Wrap(CodeConflict, stdErrors.New("row changed"), "stale status"))
	if !HasCode(err, CodeConflict) {
		t.Fatalf("expected conflict code in chain")
	}
	if HasCode(err, CodeNotFound) || HasCode(nil, CodeConflict) {
		t.Fatalf("unexpected code match")
	}
	if got := As(err).Error(); got != "CONFLICT: stale status: row changed" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Newf(CodeNotFound, "listing %d", 7).Error(); got != "NOT_FOUND: listing 7" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestDumpWalksChain(t *testing.T) {
	root := stdErrors.New("UNIQUE constraint failed: assessments.listing_id")
	err := Wrap(CodeConstraint, root, "insert assessment")

	d := Dump(err)
	if d.Code != CodeConstraint {
		t.Fatalf("expected constraint code, got %s", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(d.Chain))
	}
	if d.PG != nil {
		t.Fatalf("expected no pg details for non-postgres error, got %+v", d.PG)
	}
	if _, ok := d.Fields()["pg_code"]; ok {
		t.Fatalf("pg_code should be omitted")
	}
}

func TestDumpExtractsPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "assessments_listing_id_key", TableName: "assessments"}
	err := Wrap(CodeConstraint, fmt.Errorf("insert: %w", pgErr), "create assessment")

	d := Dump(err)
	if d.PG == nil || d.PG.Code != "23505" {
		t.Fatalf("expected pg details, got %+v", d.PG)
	}
	fields := d.Fields()
	if fields["pg_constraint"] != "assessments_listing_id_key" {
		t.Fatalf("unexpected constraint field %v", fields["pg_constraint"])
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty pg_column should be omitted")
	}
}

func TestDumpFollowsJoinedErrors(t *testing.T) {
	err := stdErrors.Join(stdErrors.New("listing a failed"), stdErrors.New("listing b failed"))

	d := Dump(err)
	if len(d.Chain) != 3 {
		t.Fatalf("expected joined root plus two branches, got %v", d.Chain)
	}
}
