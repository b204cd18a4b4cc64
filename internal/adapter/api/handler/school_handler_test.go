package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/user/campuscore/internal/adapter/api"
	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/domain/mocks"
	"github.com/user/campuscore/internal/pkg/config"
	"github.com/user/campuscore/internal/usecase"
	"github.com/user/campuscore/pkg/util"
)

const testSecret = "handler-test-secret"

type serverFixture struct {
	server  *httptest.Server
	schools *mocks.MockSchoolRepository
	token   string
}

func newServer(t *testing.T) *serverFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	schools := mocks.NewMockSchoolRepository()
	subs := &mocks.MockSubscriptionRepository{}
	plans := &mocks.MockPlanRepository{Plans: map[int64]*domain.Plan{
		1: {ID: 1, Name: "Starter", Slug: "starter", PriceMonthly: 1000, IsActive: true},
	}}
	events := &mocks.MockEventPublisher{}

	cfg := &config.Config{
		JWTSecret:      testSecret,
		BaseDomain:     "campuscore.app",
		ProvisionRPS:   100,
		ProvisionBurst: 100,
	}

	ledger := usecase.NewLedger(plans, subs, &mocks.MockInvoiceRepository{}, schools, logger)
	provisionUC := usecase.NewProvisionUseCase(schools, &mocks.MockProvisioner{}, ledger, events, logger, nil, cfg.BaseDomain, 7)
	schoolService := usecase.NewSchoolService(schools, subs, events, logger)

	router := api.NewRouter(cfg, logger, provisionUC, schoolService, ledger, plans)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	token, err := util.GenerateToken(uuid.New(), "admin", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	return &serverFixture{server: server, schools: schools, token: token}
}

func (f *serverFixture) do(t *testing.T, method, path, body string, authed bool) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

const provisionBody = `{
	"school_name": "Greenwood High",
	"school_email": "office@greenwood.edu",
	"plan_id": 1,
	"admin_name": "Pat Jones",
	"admin_email": "pat@greenwood.edu",
	"admin_password": "changeme123"
}`

func TestSchoolHandler_Provision(t *testing.T) {
	t.Run("Creates School", func(t *testing.T) {
		f := newServer(t)

		resp := f.do(t, http.MethodPost, "/api/v1/schools", provisionBody, false)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var body usecase.ProvisionResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !body.Success {
			t.Error("expected success")
		}
		if body.SchoolSlug != "greenwood-high" {
			t.Errorf("expected slug greenwood-high, got %s", body.SchoolSlug)
		}
		if body.SchoolURL != "https://greenwood-high.campuscore.app" {
			t.Errorf("unexpected school url %s", body.SchoolURL)
		}
	})

	t.Run("Validation Errors Are Unprocessable", func(t *testing.T) {
		f := newServer(t)

		resp := f.do(t, http.MethodPost, "/api/v1/schools", `{"school_name": "x"}`, false)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.StatusCode)
		}

		var body struct {
			Fields map[string]string `json:"fields"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode error body: %v", err)
		}
		if _, ok := body.Fields["admin_email"]; !ok {
			t.Errorf("expected admin_email in field errors, got %v", body.Fields)
		}
	})

	t.Run("Malformed Body Is Bad Request", func(t *testing.T) {
		f := newServer(t)

		resp := f.do(t, http.MethodPost, "/api/v1/schools", `{not-json`, false)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestSchoolHandler_Registry(t *testing.T) {
	t.Run("Listing Requires Auth", func(t *testing.T) {
		f := newServer(t)

		resp := f.do(t, http.MethodGet, "/api/v1/schools", "", false)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("Get School", func(t *testing.T) {
		f := newServer(t)

		created := f.do(t, http.MethodPost, "/api/v1/schools", provisionBody, false)
		if created.StatusCode != http.StatusCreated {
			t.Fatalf("provisioning failed with %d", created.StatusCode)
		}

		resp := f.do(t, http.MethodGet, "/api/v1/schools/1", "", true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var school domain.School
		if err := json.NewDecoder(resp.Body).Decode(&school); err != nil {
			t.Fatalf("failed to decode school: %v", err)
		}
		if school.Status != domain.StatusTrial {
			t.Errorf("expected trial status, got %s", school.Status)
		}
	})

	t.Run("Missing School Is Not Found", func(t *testing.T) {
		f := newServer(t)

		resp := f.do(t, http.MethodGet, "/api/v1/schools/99", "", true)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("Status Transition", func(t *testing.T) {
		f := newServer(t)

		created := f.do(t, http.MethodPost, "/api/v1/schools", provisionBody, false)
		if created.StatusCode != http.StatusCreated {
			t.Fatalf("provisioning failed with %d", created.StatusCode)
		}

		resp := f.do(t, http.MethodPatch, "/api/v1/schools/1/status", `{"status": "active"}`, true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		school, _ := f.schools.GetByID(context.Background(), 1)
		if school.Status != domain.StatusActive {
			t.Errorf("expected active, got %s", school.Status)
		}
	})

	t.Run("Workflow States Are Not Settable", func(t *testing.T) {
		f := newServer(t)

		created := f.do(t, http.MethodPost, "/api/v1/schools", provisionBody, false)
		if created.StatusCode != http.StatusCreated {
			t.Fatalf("provisioning failed with %d", created.StatusCode)
		}

		resp := f.do(t, http.MethodPatch, "/api/v1/schools/1/status", `{"status": "pending"}`, true)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.StatusCode)
		}
	})
}

func TestInvoiceHandler(t *testing.T) {
	t.Run("Opening Invoice Is Listed And Payable", func(t *testing.T) {
		f := newServer(t)

		created := f.do(t, http.MethodPost, "/api/v1/schools", provisionBody, false)
		if created.StatusCode != http.StatusCreated {
			t.Fatalf("provisioning failed with %d", created.StatusCode)
		}

		resp := f.do(t, http.MethodGet, "/api/v1/schools/1/invoices", "", true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var listing struct {
			Invoices []domain.Invoice `json:"invoices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
			t.Fatalf("failed to decode invoices: %v", err)
		}
		if len(listing.Invoices) != 1 {
			t.Fatalf("expected 1 opening invoice, got %d", len(listing.Invoices))
		}
		inv := listing.Invoices[0]
		if inv.Status != domain.InvoicePending || inv.Amount != 1000 {
			t.Fatalf("unexpected opening invoice: %+v", inv)
		}

		pay := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/pay", inv.ID), "", true)
		if pay.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", pay.StatusCode)
		}

		// Paying again touches nothing: the paid invoice is immutable.
		replay := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/pay", inv.ID), "", true)
		if replay.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 on replayed payment, got %d", replay.StatusCode)
		}
	})
}

func TestPlanHandler_List(t *testing.T) {
	f := newServer(t)

	resp := f.do(t, http.MethodGet, "/api/v1/plans", "", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Plans []domain.Plan `json:"plans"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode plans: %v", err)
	}
	if len(body.Plans) != 1 || body.Plans[0].Slug != "starter" {
		t.Errorf("unexpected plans: %+v", body.Plans)
	}
}

func TestHealthz(t *testing.T) {
	f := newServer(t)

	resp := f.do(t, http.MethodGet, "/healthz", "", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
