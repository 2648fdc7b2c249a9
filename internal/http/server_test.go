package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
	"saldo/internal/store/memory"
)

func newTestServer(t *testing.T, seed *core.Dataset) *Server {
	t.Helper()
	var st *memory.Store
	if seed != nil {
		st = memory.NewFromDataset(seed)
	} else {
		st = memory.New()
	}
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	svc, err := ledger.New(context.Background(), st, ledger.Options{Logger: logger})
	if err != nil {
		t.Fatalf("ledger.New() error = %v", err)
	}
	srv := NewServer(":0", svc, logger)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestEntryLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/entries/expense",
		`{"date":"2025-03-10","description":"groceries","amount":"42.50"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPut, "/api/entries/expense",
		`{"match":{"date":"2025-03-10","description":"groceries","amount":"42.50"},`+
			`"updated":{"date":"2025-03-11","description":"groceries","amount":"45.00"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodDelete, "/api/entries/expense",
		`{"date":"2025-03-11","description":"groceries","amount":"45.00"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodDelete, "/api/entries/expense",
		`{"date":"2025-03-11","description":"groceries","amount":"45.00"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestEntryValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{
			name: "malformed amount",
			path: "/api/entries/expense",
			body: `{"date":"2025-03-10","description":"groceries","amount":"abc"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "empty description",
			path: "/api/entries/expense",
			body: `{"date":"2025-03-10","description":"","amount":"42.50"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown kind",
			path: "/api/entries/savings",
			body: `{"date":"2025-03-10","description":"groceries","amount":"42.50"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "malformed body",
			path: "/api/entries/expense",
			body: `{not json`,
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestRuleAndOverrideLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/rules/income",
		`{"description":"salary","amount":"3200.00","frequency":"monthly","startDate":"2025-01-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create rule status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var created core.Rule
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created rule: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created rule has no id")
	}

	rr = do(t, srv, http.MethodPut, "/api/overrides",
		`{"recurringId":"`+created.ID+`","yearMonth":"2025-06","amount":"3800.00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("upsert override status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/recurring/income?month=2025-06", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expand status = %d", rr.Code)
	}
	var expanded []core.Entry
	if err := json.Unmarshal(rr.Body.Bytes(), &expanded); err != nil {
		t.Fatalf("decode expanded entries: %v", err)
	}
	if len(expanded) != 1 || expanded[0].Amount != "3800.00" {
		t.Errorf("expanded = %+v, want one entry at override amount", expanded)
	}

	rr = do(t, srv, http.MethodDelete, "/api/overrides/"+created.ID+"/2025-06", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete override status = %d", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/api/rules/income/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete rule status = %d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/rules/income/"+created.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestProjectionEndpoint(t *testing.T) {
	seed := core.NewDataset()
	seed.Anchor = "5000.00"
	d1, _ := core.ParseDate("2025-03-10")
	d2, _ := core.ParseDate("2025-03-25")
	seed.Expenses = []core.Entry{{Date: d1, Description: "insurance", Amount: "200.00"}}
	seed.Incomes = []core.Entry{{Date: d2, Description: "salary", Amount: "3000.00"}}
	srv := newTestServer(t, seed)

	rr := do(t, srv, http.MethodGet, "/api/projection?start=2025-03-01&end=2025-03-31", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("projection status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp projectionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode projection: %v", err)
	}
	if resp.CarriedIn != "5000.00" || resp.Balance != "7800.00" {
		t.Errorf("carriedIn = %s balance = %s, want 5000.00 and 7800.00", resp.CarriedIn, resp.Balance)
	}
	if len(resp.Steps) != 1 || resp.Steps[0].Month != "2025-03" {
		t.Errorf("steps = %+v, want single March step", resp.Steps)
	}

	rr = do(t, srv, http.MethodGet, "/api/projection?start=2025-03-01", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing end status = %d, want 400", rr.Code)
	}
}

func TestSimulationEndpoints(t *testing.T) {
	seed := core.NewDataset()
	seed.Anchor = "5000.00"
	srv := newTestServer(t, seed)

	rr := do(t, srv, http.MethodGet, "/api/simulation/compare?start=2025-04-01&end=2025-04-30", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("compare while idle status = %d, want 409", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/simulation/start", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("start status = %d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/entries/expense",
		`{"date":"2025-04-10","description":"what if","amount":"1000.00"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("speculative create status = %d", rr.Code)
	}
	var echoed core.Entry
	if err := json.Unmarshal(rr.Body.Bytes(), &echoed); err != nil {
		t.Fatalf("decode created entry: %v", err)
	}
	if !echoed.Speculative {
		t.Error("entry created during simulation echoed without speculative tag")
	}

	rr = do(t, srv, http.MethodGet, "/api/simulation/compare?start=2025-04-01&end=2025-04-30", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("compare status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var cmp compareResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &cmp); err != nil {
		t.Fatalf("decode compare: %v", err)
	}
	if cmp.BalanceDelta != "-1000.00" {
		t.Errorf("balanceDelta = %s, want -1000.00", cmp.BalanceDelta)
	}

	rr = do(t, srv, http.MethodPost, "/api/simulation/discard", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("discard status = %d", rr.Code)
	}
	var trans simulationTransition
	if err := json.Unmarshal(rr.Body.Bytes(), &trans); err != nil {
		t.Fatalf("decode transition: %v", err)
	}
	if !trans.Changed || trans.Simulating {
		t.Errorf("discard transition = %+v", trans)
	}

	rr = do(t, srv, http.MethodGet, "/api/dataset", "")
	var data core.Dataset
	if err := json.Unmarshal(rr.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode dataset: %v", err)
	}
	if len(data.Expenses) != 0 {
		t.Errorf("expenses after discard = %+v, want none", data.Expenses)
	}
}

func TestAnchorEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPut, "/api/anchor", `{"amount":"5000.00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("set anchor status = %d", rr.Code)
	}
	rr = do(t, srv, http.MethodPut, "/api/anchor", `{"amount":"five"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid anchor status = %d, want 422", rr.Code)
	}
}
