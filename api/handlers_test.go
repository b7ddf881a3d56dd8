/*
handlers_test.go - Tests for the HTTP API

Tests for:
- Sale listing with computed valuations and period filtering
- Approval endpoints, including lock conflicts (409)
- Deferral and override mutations
- Commission ranking and portfolio projection endpoints
- Configuration documents and demo scenarios
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andesalud/billing-engine/billing"
	"github.com/andesalud/billing-engine/billing/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestAPI(t *testing.T) (*chiServer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	h := NewHandler(mem)
	return &chiServer{router: NewRouter(h)}, mem
}

// chiServer is a thin exec helper around the router.
type chiServer struct {
	router http.Handler
}

func (s *chiServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *chiServer) mustStatus(t *testing.T, method, path, body string, want int) *httptest.ResponseRecorder {
	t.Helper()
	rec := s.do(t, method, path, body)
	if rec.Code != want {
		t.Fatalf("%s %s = %d, want %d (body %s)", method, path, rec.Code, want, rec.Body.String())
	}
	return rec
}

func seedAPISale(t *testing.T, mem *store.Memory, id, seller, insurer string, gross float64, approved bool) {
	t.Helper()
	err := mem.SaveSale(context.Background(), billing.SaleRecord{
		ID:         billing.RecordID(id),
		Client:     "Cliente " + id,
		EntryDate:  time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Seller:     billing.SellerID(seller),
		Insurer:    insurer,
		GrossPrice: decimal.NewFromFloat(gross),
		Type:       billing.RecordAlta,
		Approved:   approved,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return out
}

// =============================================================================
// SALE ENDPOINT TESTS
// =============================================================================

func TestAPI_ListSales_WithValuations(t *testing.T) {
	srv, mem := newTestAPI(t)
	seedAPISale(t, mem, "r-1", "lucia", "AMPF", 50000, false)

	rec := srv.mustStatus(t, "GET", "/api/sales", "", http.StatusOK)
	sales := decodeBody[[]SaleDTO](t, rec)
	if len(sales) != 1 {
		t.Fatalf("got %d sales", len(sales))
	}
	if sales[0].Value != 100000 {
		t.Errorf("value = %v, want 100000", sales[0].Value)
	}
	if sales[0].EffectivePeriod != "2025-03" {
		t.Errorf("effective period = %q", sales[0].EffectivePeriod)
	}
}

func TestAPI_ListSales_PeriodFilter(t *testing.T) {
	srv, mem := newTestAPI(t)
	seedAPISale(t, mem, "r-1", "lucia", "AMPF", 50000, false)

	rec := srv.mustStatus(t, "GET", "/api/sales?period=2025-04", "", http.StatusOK)
	if sales := decodeBody[[]SaleDTO](t, rec); len(sales) != 0 {
		t.Errorf("april should be empty, got %d", len(sales))
	}

	srv.mustStatus(t, "GET", "/api/sales?period=bogus", "", http.StatusBadRequest)
}

func TestAPI_ApproveUnapprove(t *testing.T) {
	srv, mem := newTestAPI(t)
	seedAPISale(t, mem, "r-1", "lucia", "AMPF", 50000, false)

	srv.mustStatus(t, "POST", "/api/sales/r-1/approve", "", http.StatusNoContent)
	r, _ := mem.GetSale(context.Background(), "r-1")
	if !r.Approved {
		t.Error("record should be approved")
	}

	srv.mustStatus(t, "POST", "/api/sales/r-1/unapprove", "", http.StatusNoContent)
	r, _ = mem.GetSale(context.Background(), "r-1")
	if r.Approved {
		t.Error("record should be pending again")
	}
}

func TestAPI_Approve_NotFound(t *testing.T) {
	srv, _ := newTestAPI(t)
	srv.mustStatus(t, "POST", "/api/sales/missing/approve", "", http.StatusNotFound)
}

func TestAPI_LockedPeriod_Conflict(t *testing.T) {
	// GIVEN: March 2025 is locked through the API
	// WHEN: Approving a March record
	// THEN: 409, and the record stays pending

	srv, mem := newTestAPI(t)
	seedAPISale(t, mem, "r-1", "lucia", "AMPF", 50000, false)

	srv.mustStatus(t, "POST", "/api/periods/2025-03/lock", "", http.StatusNoContent)
	srv.mustStatus(t, "POST", "/api/sales/r-1/approve", "", http.StatusConflict)

	srv.mustStatus(t, "DELETE", "/api/periods/2025-03/lock", "", http.StatusNoContent)
	srv.mustStatus(t, "POST", "/api/sales/r-1/approve", "", http.StatusNoContent)
}

func TestAPI_Defer(t *testing.T) {
	srv, mem := newTestAPI(t)
	seedAPISale(t, mem, "r-1", "lucia", "AMPF", 50000, false)

	srv.mustStatus(t, "POST", "/api/sales/r-1/defer",
		`{"selected_period": "2024-12"}`, http.StatusNoContent)

	r, _ := mem.GetSale(context.Background(), "r-1")
	if r.Period == nil || r.Period.String() != "2025-01" {
		t.Errorf("period = %v, want 2025-01", r.Period)
	}

	srv.mustStatus(t, "POST", "/api/sales/r-1/defer", `{}`, http.StatusBadRequest)
}

func TestAPI_Overrides_SetAndClear(t *testing.T) {
	srv, mem := newTestAPI(t)
	seedAPISale(t, mem, "r-1", "lucia", "AMPF", 50000, false)

	srv.mustStatus(t, "PUT", "/api/sales/r-1/overrides",
		`{"price_override": 123.45}`, http.StatusNoContent)

	rec := srv.mustStatus(t, "GET", "/api/sales/r-1/valuation", "", http.StatusOK)
	v := decodeBody[ValuationDTO](t, rec)
	if v.Value != 123.45 {
		t.Errorf("value = %v, want the frozen 123.45", v.Value)
	}
	if v.FormulaLabel != billing.LabelFrozen {
		t.Errorf("label = %q", v.FormulaLabel)
	}

	srv.mustStatus(t, "PUT", "/api/sales/r-1/overrides",
		`{"clear_price_override": true}`, http.StatusNoContent)

	rec = srv.mustStatus(t, "GET", "/api/sales/r-1/valuation", "", http.StatusOK)
	if v := decodeBody[ValuationDTO](t, rec); v.Value != 100000 {
		t.Errorf("value = %v, want the formula value back", v.Value)
	}
}

// =============================================================================
// PERIOD AND COMMISSION ENDPOINT TESTS
// =============================================================================

func TestAPI_PeriodSummary(t *testing.T) {
	srv, mem := newTestAPI(t)
	seedAPISale(t, mem, "r-1", "lucia", "AMPF", 50000, true)
	seedAPISale(t, mem, "r-2", "lucia", "AMPF", 50000, false)

	rec := srv.mustStatus(t, "GET", "/api/periods/2025-03/summary", "", http.StatusOK)
	s := decodeBody[PeriodSummaryDTO](t, rec)
	if s.RecordCount != 2 || s.ApprovedCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", s.RecordCount, s.ApprovedCount)
	}
	if s.TotalValue != 200000 || s.ApprovedValue != 100000 {
		t.Errorf("values = %v/%v", s.TotalValue, s.ApprovedValue)
	}
	if s.Locked {
		t.Error("fresh month should not be locked")
	}
}

func TestAPI_PeriodCommissions(t *testing.T) {
	// GIVEN: A 5-hour seller with 9 approved AMPF sales worth 10000 each
	// WHEN: Asking for the month's commissions
	// THEN: One payable sale at the 15% tier: 1500

	srv, mem := newTestAPI(t)
	if err := mem.SaveSellerShift(context.Background(), "carla", 5); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 9; i++ {
		seedAPISale(t, mem, fmt.Sprintf("r-%02d", i), "carla", "AMPF", 5000, true)
	}

	rec := srv.mustStatus(t, "GET", "/api/periods/2025-03/commissions", "", http.StatusOK)
	out := decodeBody[[]CommissionDTO](t, rec)
	if len(out) != 1 {
		t.Fatalf("got %d sellers", len(out))
	}
	c := out[0]
	if c.Seller != "carla" || c.ShiftHours != 5 {
		t.Errorf("seller = %s/%dh", c.Seller, c.ShiftHours)
	}
	if c.VariableCount != 9 || c.PayableCount != 1 {
		t.Errorf("counts = %d/%d, want 9/1", c.VariableCount, c.PayableCount)
	}
	if c.VariableCommission != 1500 {
		t.Errorf("variable commission = %v, want 1500", c.VariableCommission)
	}
}

// =============================================================================
// PORTFOLIO ENDPOINT TESTS
// =============================================================================

func TestAPI_Portfolio(t *testing.T) {
	srv, mem := newTestAPI(t)
	seedAPISale(t, mem, "r-1", "lucia", "Prevención Salud", 100000, true)

	srv.mustStatus(t, "POST", "/api/portfolio/clients",
		`{"name": "Familia Ortiz", "liquidation_value": 100000}`, http.StatusCreated)

	rec := srv.mustStatus(t, "GET", "/api/portfolio?period=2025-03", "", http.StatusOK)
	p := decodeBody[PortfolioDTO](t, rec)
	// Automatic: 100000 × 1.30 × 0.05 = 6500. Manual: 100000 × 0.05 = 5000.
	if p.Automatic != 6500 || p.Manual != 5000 || p.Total != 11500 {
		t.Errorf("portfolio = %+v", p)
	}
}

func TestAPI_ManualClients_CreateAndDelete(t *testing.T) {
	srv, _ := newTestAPI(t)

	rec := srv.mustStatus(t, "POST", "/api/portfolio/clients",
		`{"name": "Estudio Ramírez", "liquidation_value": 150000}`, http.StatusCreated)
	created := decodeBody[ManualClientDTO](t, rec)
	if created.ID == "" {
		t.Fatal("created client should carry a generated id")
	}

	srv.mustStatus(t, "DELETE", "/api/portfolio/clients/"+created.ID, "", http.StatusNoContent)
	srv.mustStatus(t, "DELETE", "/api/portfolio/clients/"+created.ID, "", http.StatusNotFound)

	// Name is required.
	srv.mustStatus(t, "POST", "/api/portfolio/clients",
		`{"liquidation_value": 1}`, http.StatusBadRequest)
}

// =============================================================================
// CONFIGURATION ENDPOINT TESTS
// =============================================================================

func TestAPI_RuleConfig_ChangesUnfrozenValues(t *testing.T) {
	// GIVEN: An approved-but-unedited AMPF record
	// WHEN: The administrator changes the AMPF multiplier
	// THEN: The record's computed value drifts with the new rate

	srv, mem := newTestAPI(t)
	seedAPISale(t, mem, "r-1", "lucia", "AMPF", 50000, true)

	srv.mustStatus(t, "PUT", "/api/config/rules",
		`{"ampf_multiplier": 3.0}`, http.StatusNoContent)

	rec := srv.mustStatus(t, "GET", "/api/sales/r-1/valuation", "", http.StatusOK)
	if v := decodeBody[ValuationDTO](t, rec); v.Value != 150000 {
		t.Errorf("value = %v, want 150000 under the new rate", v.Value)
	}
}

func TestAPI_SellerShift_Validation(t *testing.T) {
	srv, _ := newTestAPI(t)

	srv.mustStatus(t, "PUT", "/api/sellers/carla/shift", `{"hours": 5}`, http.StatusNoContent)
	srv.mustStatus(t, "PUT", "/api/sellers/carla/shift", `{"hours": 0}`, http.StatusBadRequest)
	srv.mustStatus(t, "PUT", "/api/sellers/carla/shift", `{"hours": 25}`, http.StatusBadRequest)

	rec := srv.mustStatus(t, "GET", "/api/sellers/shifts", "", http.StatusOK)
	shifts := decodeBody[map[string]int](t, rec)
	if shifts["carla"] != 5 {
		t.Errorf("shifts = %v", shifts)
	}
}

// =============================================================================
// SCENARIO ENDPOINT TESTS
// =============================================================================

func TestAPI_Scenarios_LoadCommissionQuota(t *testing.T) {
	srv, _ := newTestAPI(t)

	rec := srv.mustStatus(t, "GET", "/api/scenarios", "", http.StatusOK)
	if all := decodeBody[[]ScenarioDTO](t, rec); len(all) != 3 {
		t.Fatalf("got %d scenarios", len(all))
	}

	srv.mustStatus(t, "POST", "/api/scenarios/load",
		`{"id": "commission-quota"}`, http.StatusOK)

	period := billing.CurrentMonth().String()
	out := decodeBody[[]CommissionDTO](t,
		srv.mustStatus(t, "GET", "/api/periods/"+period+"/commissions", "", http.StatusOK))
	if len(out) != 1 || out[0].Seller != "carla" {
		t.Fatalf("commissions = %+v", out)
	}
	if out[0].PayableCount != 1 {
		t.Errorf("payable = %d, want the single sale past the quota", out[0].PayableCount)
	}
	if out[0].SpecialCount != 1 {
		t.Errorf("special = %d, want the Cerca sale", out[0].SpecialCount)
	}

	srv.mustStatus(t, "POST", "/api/scenarios/load", `{"id": "nope"}`, http.StatusNotFound)
}
