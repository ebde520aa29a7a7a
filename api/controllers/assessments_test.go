package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/listing-qa-backend/api/middleware"
	"github.com/angelmondragon/listing-qa-backend/internal/assessments"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
)

type testAssessmentService struct {
	assessments.Service
	createFn  func(ctx context.Context, listingID, sellerID uuid.UUID) (*assessments.CreateResult, error)
	getFn     func(ctx context.Context, listingID uuid.UUID) (*models.Assessment, error)
	approveFn func(ctx context.Context, input assessments.TransitionInput) (*models.Assessment, error)
	rejectFn  func(ctx context.Context, input assessments.RejectInput) (*models.Assessment, error)
	resubmit  func(ctx context.Context, input assessments.TransitionInput) (*models.Assessment, error)
	decisions func(ctx context.Context, assessmentID uuid.UUID) (*assessments.Decisions, error)
}

func (s *testAssessmentService) LatestDecisions(ctx context.Context, assessmentID uuid.UUID) (*assessments.Decisions, error) {
	return s.decisions(ctx, assessmentID)
}

func (s *testAssessmentService) CreateAssessment(ctx context.Context, listingID, sellerID uuid.UUID) (*assessments.CreateResult, error) {
	return s.createFn(ctx, listingID, sellerID)
}

func (s *testAssessmentService) GetByListingID(ctx context.Context, listingID uuid.UUID) (*models.Assessment, error) {
	return s.getFn(ctx, listingID)
}

func (s *testAssessmentService) ApproveDigital(ctx context.Context, input assessments.TransitionInput) (*models.Assessment, error) {
	return s.approveFn(ctx, input)
}

func (s *testAssessmentService) Reject(ctx context.Context, input assessments.RejectInput) (*models.Assessment, error) {
	return s.rejectFn(ctx, input)
}

func (s *testAssessmentService) Resubmit(ctx context.Context, input assessments.TransitionInput) (*models.Assessment, error) {
	return s.resubmit(ctx, input)
}

type testReconciler struct {
	result assessments.ReconcileResult
	err    error
}

func (r testReconciler) FindOrphans(context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func (r testReconciler) Reconcile(context.Context) (assessments.ReconcileResult, error) {
	return r.result, r.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func listingRequest(method, listingID string, body io.Reader, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, "/", body)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("listingId", listingID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	ctx = middleware.WithUserID(ctx, userID.String())
	return req.WithContext(ctx)
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var envelope errorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	return envelope
}

func TestSellerCreateAssessmentStatusCodes(t *testing.T) {
	sellerID := uuid.New()
	listingID := uuid.New()

	for _, created := range []bool{true, false} {
		svc := &testAssessmentService{
			createFn: func(ctx context.Context, lid, sid uuid.UUID) (*assessments.CreateResult, error) {
				if lid != listingID || sid != sellerID {
					t.Fatalf("unexpected ids %s %s", lid, sid)
				}
				return &assessments.CreateResult{
					Assessment: &models.Assessment{ID: uuid.New(), ListingID: lid, Status: enums.AssessmentStatusPendingDigitalReview, CreatedBy: sid},
					Created:    created,
				}, nil
			},
		}

		resp := httptest.NewRecorder()
		SellerCreateAssessment(svc, testLogger())(resp, listingRequest(http.MethodPost, listingID.String(), nil, sellerID))

		want := http.StatusOK
		if created {
			want = http.StatusCreated
		}
		if resp.Code != want {
			t.Fatalf("created=%v: expected %d got %d", created, want, resp.Code)
		}
		var envelope struct {
			Data struct {
				Created    bool             `json:"created"`
				Assessment assessments.View `json:"assessment"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if envelope.Data.Created != created {
			t.Fatalf("expected created=%v", created)
		}
		if envelope.Data.Assessment.ListingID != listingID {
			t.Fatalf("unexpected listing %s", envelope.Data.Assessment.ListingID)
		}
	}
}

func TestSellerCreateAssessmentInvalidListingID(t *testing.T) {
	resp := httptest.NewRecorder()
	SellerCreateAssessment(&testAssessmentService{}, testLogger())(resp, listingRequest(http.MethodPost, "not-a-uuid", nil, uuid.New()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSellerGetAssessmentRefusesOtherSeller(t *testing.T) {
	listingID := uuid.New()
	svc := &testAssessmentService{
		getFn: func(ctx context.Context, lid uuid.UUID) (*models.Assessment, error) {
			return &models.Assessment{ID: uuid.New(), ListingID: lid, CreatedBy: uuid.New()}, nil
		},
	}

	resp := httptest.NewRecorder()
	SellerGetAssessment(svc, testLogger())(resp, listingRequest(http.MethodGet, listingID.String(), nil, uuid.New()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestSellerAssessmentDecisions(t *testing.T) {
	sellerID := uuid.New()
	assessmentID := uuid.New()
	var asked uuid.UUID
	svc := &testAssessmentService{
		getFn: func(ctx context.Context, lid uuid.UUID) (*models.Assessment, error) {
			return &models.Assessment{ID: assessmentID, ListingID: lid, CreatedBy: sellerID}, nil
		},
		decisions: func(ctx context.Context, id uuid.UUID) (*assessments.Decisions, error) {
			asked = id
			return &assessments.Decisions{
				Revision: &assessments.AuditEntry{Kind: assessments.AuditKindRevision, Text: "add a side view"},
			}, nil
		},
	}

	resp := httptest.NewRecorder()
	SellerAssessmentDecisions(svc, testLogger())(resp, listingRequest(http.MethodGet, uuid.NewString(), nil, sellerID))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if asked != assessmentID {
		t.Fatalf("expected lookup by assessment id %s, got %s", assessmentID, asked)
	}
	if !strings.Contains(resp.Body.String(), `"latest_revision"`) || !strings.Contains(resp.Body.String(), "add a side view") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	SellerAssessmentDecisions(svc, testLogger())(resp, listingRequest(http.MethodGet, uuid.NewString(), nil, uuid.New()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another seller, got %d", resp.Code)
	}
}

func TestAdminApproveDigitalPassesActorAndExpectedStatus(t *testing.T) {
	adminID := uuid.New()
	listingID := uuid.New()
	var captured assessments.TransitionInput
	svc := &testAssessmentService{
		approveFn: func(ctx context.Context, input assessments.TransitionInput) (*models.Assessment, error) {
			captured = input
			return &models.Assessment{ID: uuid.New(), ListingID: input.ListingID, Status: enums.AssessmentStatusWaitingForSample}, nil
		},
	}

	body := strings.NewReader(`{"expected_status":"pending_digital_review"}`)
	resp := httptest.NewRecorder()
	AdminApproveDigital(svc, testLogger())(resp, listingRequest(http.MethodPost, listingID.String(), body, adminID))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.ListingID != listingID || captured.ActorID != adminID {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.ExpectedStatus == nil || *captured.ExpectedStatus != enums.AssessmentStatusPendingDigitalReview {
		t.Fatalf("expected status not forwarded")
	}
}

func TestAdminApproveDigitalConflict(t *testing.T) {
	svc := &testAssessmentService{
		approveFn: func(ctx context.Context, input assessments.TransitionInput) (*models.Assessment, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "assessment status changed").WithDetails(map[string]any{
				"expected_status": "pending_digital_review",
				"actual_status":   "waiting_for_sample",
			})
		},
	}

	resp := httptest.NewRecorder()
	AdminApproveDigital(svc, testLogger())(resp, listingRequest(http.MethodPost, uuid.NewString(), nil, uuid.New()))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	envelope := decodeError(t, resp)
	if envelope.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Details["actual_status"] != "waiting_for_sample" {
		t.Fatalf("conflict details missing: %+v", envelope.Error.Details)
	}
}

func TestAdminRejectValidatesBody(t *testing.T) {
	svc := &testAssessmentService{
		rejectFn: func(ctx context.Context, input assessments.RejectInput) (*models.Assessment, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	tests := []struct {
		name string
		body string
	}{
		{"missing reason", `{"stage":"digital"}`},
		{"unknown stage", `{"reason":"blurry photos","stage":"shipping"}`},
		{"bad expected status", `{"reason":"blurry photos","stage":"digital","expected_status":"approved"}`},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		AdminReject(svc, testLogger())(resp, listingRequest(http.MethodPost, uuid.NewString(), strings.NewReader(tt.body), uuid.New()))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", tt.name, resp.Code)
		}
	}
}

func TestAdminRejectForwardsStageAndReason(t *testing.T) {
	var captured assessments.RejectInput
	svc := &testAssessmentService{
		rejectFn: func(ctx context.Context, input assessments.RejectInput) (*models.Assessment, error) {
			captured = input
			return &models.Assessment{ID: uuid.New(), ListingID: input.ListingID, Status: enums.AssessmentStatusRejected}, nil
		},
	}

	body := strings.NewReader(`{"reason":"  counterfeit label ","stage":"physical"}`)
	resp := httptest.NewRecorder()
	AdminReject(svc, testLogger())(resp, listingRequest(http.MethodPost, uuid.NewString(), body, uuid.New()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.Stage != enums.RejectionStagePhysical {
		t.Fatalf("unexpected stage %s", captured.Stage)
	}
	if captured.Reason != "counterfeit label" {
		t.Fatalf("unexpected reason %q", captured.Reason)
	}
}

func TestSellerResubmitAcceptsEmptyBody(t *testing.T) {
	sellerID := uuid.New()
	svc := &testAssessmentService{
		resubmit: func(ctx context.Context, input assessments.TransitionInput) (*models.Assessment, error) {
			if input.ExpectedStatus != nil {
				t.Fatalf("unexpected expected status %s", *input.ExpectedStatus)
			}
			if input.ActorID != sellerID {
				t.Fatalf("unexpected actor %s", input.ActorID)
			}
			return &models.Assessment{ID: uuid.New(), ListingID: input.ListingID, Status: enums.AssessmentStatusPendingDigitalReview}, nil
		},
	}

	resp := httptest.NewRecorder()
	SellerResubmit(svc, testLogger())(resp, listingRequest(http.MethodPost, uuid.NewString(), nil, sellerID))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminReconcileReportsPartialFailure(t *testing.T) {
	rec := testReconciler{
		result: assessments.ReconcileResult{Found: 3, Created: 2, Failed: 1},
		err:    multierr.Append(nil, errors.New("listing x: connection refused")),
	}

	resp := httptest.NewRecorder()
	AdminReconcile(rec, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	envelope := decodeError(t, resp)
	if envelope.Error.Details["failed"] != float64(1) {
		t.Fatalf("unexpected details %+v", envelope.Error.Details)
	}
}

func TestAdminReconcileSuccess(t *testing.T) {
	rec := testReconciler{result: assessments.ReconcileResult{Found: 1, Bypassed: 1}}

	resp := httptest.NewRecorder()
	AdminReconcile(rec, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data assessments.ReconcileResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Bypassed != 1 {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}
