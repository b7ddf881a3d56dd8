/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to domain logic.

ENDPOINTS:
  Sales:
    GET    /api/sales?period=YYYY-MM        List sales (with valuations)
    GET    /api/sales/{id}/valuation        One computed valuation
    POST   /api/sales/{id}/approve          Mark official
    POST   /api/sales/{id}/unapprove        Revert to pending
    POST   /api/sales/{id}/defer            Kick forward one cycle
    PUT    /api/sales/{id}/overrides        Set/clear value overrides

  Periods:
    GET    /api/periods/{period}/summary      Aggregates for the month
    GET    /api/periods/{period}/commissions  Seller ranking
    POST   /api/periods/{period}/lock         Close the month
    DELETE /api/periods/{period}/lock         Reopen the month

  Portfolio:
    GET    /api/portfolio?period=YYYY-MM    Projection breakdown
    GET    /api/portfolio/clients           Manual clients
    POST   /api/portfolio/clients           Create manual client
    DELETE /api/portfolio/clients/{id}      Delete manual client

  Configuration:
    GET/PUT /api/config/rules               Valuation rates (JSON doc)
    GET/PUT /api/config/commissions         Commission schedules (JSON doc)
    GET     /api/sellers/shifts             Seller shift mapping
    PUT     /api/sellers/{id}/shift         Assign shift length

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Locked period
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/andesalud/billing-engine/billing"
	"github.com/andesalud/billing-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    billing.Store
	Workflow *billing.Workflow

	validate *validator.Validate

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler over the given store.
func NewHandler(store billing.Store) *Handler {
	return &Handler{
		Store:    store,
		Workflow: billing.NewWorkflow(store),
		validate: validator.New(),
	}
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// ListSales returns sale records with their computed valuations,
// optionally filtered to one billing month.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sales, cfg, err := h.loadSales(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}

	if p := r.URL.Query().Get("period"); p != "" {
		period, err := billing.ParseMonth(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
			return
		}
		sales = billing.ListForPeriod(sales, period)
	}

	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s, billing.ComputeValue(s, cfg))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetValuation returns one record's computed valuation.
func (h *Handler) GetValuation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := billing.RecordID(chi.URLParam(r, "id"))

	record, err := h.Store.GetSale(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to get sale", err)
		return
	}
	cfg, err := h.Store.RuleConfiguration(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load configuration", err)
		return
	}

	v := billing.ComputeValue(*record, cfg)
	dto := ValuationDTO{FormulaLabel: v.FormulaLabel}
	dto.Value, _ = v.Value.Float64()
	dto.PortfolioValue, _ = v.PortfolioValue.Float64()
	writeJSON(w, http.StatusOK, dto)
}

// Approve marks a record as official.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id := billing.RecordID(chi.URLParam(r, "id"))
	if err := h.Workflow.Approve(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to approve", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unapprove reverts a record to pending.
func (h *Handler) Unapprove(w http.ResponseWriter, r *http.Request) {
	id := billing.RecordID(chi.URLParam(r, "id"))
	if err := h.Workflow.Unapprove(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to unapprove", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Defer kicks a record one billing cycle past the selected month.
func (h *Handler) Defer(w http.ResponseWriter, r *http.Request) {
	id := billing.RecordID(chi.URLParam(r, "id"))

	var req DeferRequest
	if !h.decode(w, r, &req) {
		return
	}
	selected, err := billing.ParseMonth(req.SelectedPeriod)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid selected_period (use YYYY-MM)", err)
		return
	}

	if err := h.Workflow.Defer(r.Context(), id, selected); err != nil {
		writeDomainError(w, "Failed to defer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetOverrides sets or clears the record's value overrides.
func (h *Handler) SetOverrides(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := billing.RecordID(chi.URLParam(r, "id"))

	var req OverrideRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.PriceOverride != nil || req.ClearPriceOverride {
		var v *decimal.Decimal
		if req.PriceOverride != nil {
			d := decimal.NewFromFloat(*req.PriceOverride)
			v = &d
		}
		if err := h.Workflow.SetPriceOverride(ctx, id, v); err != nil {
			writeDomainError(w, "Failed to set price override", err)
			return
		}
	}

	if req.PortfolioOverride != nil || req.ClearPortfolioOverride {
		var v *decimal.Decimal
		if req.PortfolioOverride != nil {
			d := decimal.NewFromFloat(*req.PortfolioOverride)
			v = &d
		}
		if err := h.Workflow.SetPortfolioOverride(ctx, id, v); err != nil {
			writeDomainError(w, "Failed to set portfolio override", err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// PeriodSummary aggregates one billing month.
func (h *Handler) PeriodSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}

	sales, cfg, err := h.loadSales(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}
	locked, err := h.Store.IsPeriodLocked(ctx, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check lock", err)
		return
	}
	clients, err := h.Store.ListManualClients(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list manual clients", err)
		return
	}

	inPeriod := billing.ListForPeriod(sales, period)
	var approved []billing.SaleRecord
	total := decimal.Zero
	approvedValue := decimal.Zero
	for _, s := range inPeriod {
		v := billing.ComputeValue(s, cfg).Value
		total = total.Add(v)
		if s.Approved {
			approved = append(approved, s)
			approvedValue = approvedValue.Add(v)
		}
	}

	summary := PeriodSummaryDTO{
		Period:        period.String(),
		Locked:        locked,
		RecordCount:   len(inPeriod),
		ApprovedCount: len(approved),
		Portfolio:     toPortfolioDTO(billing.ProjectPortfolio(approved, clients, cfg)),
	}
	summary.TotalValue, _ = total.Float64()
	summary.ApprovedValue, _ = approvedValue.Float64()
	writeJSON(w, http.StatusOK, summary)
}

// PeriodCommissions returns the seller ranking for one billing month.
func (h *Handler) PeriodCommissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}

	sales, cfg, err := h.loadSales(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}
	rules, err := h.Store.CommissionRules(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load commission rules", err)
		return
	}
	shifts, err := h.Store.SellerShifts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load seller shifts", err)
		return
	}

	var approved []billing.SaleRecord
	for _, s := range billing.ListForPeriod(sales, period) {
		if s.Approved {
			approved = append(approved, s)
		}
	}

	commissions := billing.ComputeCommissions(approved, shifts, rules, cfg)
	dtos := make([]CommissionDTO, len(commissions))
	for i, c := range commissions {
		dtos[i] = toCommissionDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LockPeriod closes a billing month.
func (h *Handler) LockPeriod(w http.ResponseWriter, r *http.Request) {
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	if err := h.Store.LockPeriod(r.Context(), period); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to lock period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnlockPeriod reopens a billing month.
func (h *Handler) UnlockPeriod(w http.ResponseWriter, r *http.Request) {
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	if err := h.Store.UnlockPeriod(r.Context(), period); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to unlock period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PORTFOLIO HANDLERS
// =============================================================================

// GetPortfolio returns the recurring-revenue projection for a month.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p := r.URL.Query().Get("period")
	if p == "" {
		p = billing.CurrentMonth().String()
	}
	period, err := billing.ParseMonth(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}

	sales, cfg, err := h.loadSales(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}
	clients, err := h.Store.ListManualClients(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list manual clients", err)
		return
	}

	var approved []billing.SaleRecord
	for _, s := range billing.ListForPeriod(sales, period) {
		if s.Approved {
			approved = append(approved, s)
		}
	}

	writeJSON(w, http.StatusOK, toPortfolioDTO(billing.ProjectPortfolio(approved, clients, cfg)))
}

// ListManualClients returns all manual portfolio clients.
func (h *Handler) ListManualClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListManualClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list manual clients", err)
		return
	}
	dtos := make([]ManualClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toManualClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateManualClient creates a manual portfolio client.
func (h *Handler) CreateManualClient(w http.ResponseWriter, r *http.Request) {
	var req CreateManualClientRequest
	if !h.decode(w, r, &req) {
		return
	}

	client := billing.ManualPortfolioClient{
		ID:               newID(),
		Name:             req.Name,
		Insurer:          req.Insurer,
		Plan:             req.Plan,
		GrossPrice:       decimal.NewFromFloat(req.GrossPrice),
		Discount:         decimal.NewFromFloat(req.Discount),
		LiquidationValue: decimal.NewFromFloat(req.LiquidationValue),
	}
	if err := h.Store.CreateManualClient(r.Context(), client); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create manual client", err)
		return
	}
	writeJSON(w, http.StatusCreated, toManualClientDTO(client))
}

// DeleteManualClient removes a manual portfolio client.
func (h *Handler) DeleteManualClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteManualClient(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete manual client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONFIGURATION HANDLERS
// =============================================================================

// GetRuleConfig returns the valuation rates as their JSON document.
func (h *Handler) GetRuleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.RuleConfiguration(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load configuration", err)
		return
	}
	body, err := factory.MarshalRuleConfiguration(cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to marshal configuration", err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

// PutRuleConfig replaces the valuation rates from a JSON document.
// Un-frozen records recompute under the new rates immediately.
func (h *Handler) PutRuleConfig(w http.ResponseWriter, r *http.Request) {
	var doc factory.RuleConfigurationJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	raw, _ := json.Marshal(doc)
	cfg, err := factory.ParseRuleConfiguration(string(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule configuration", err)
		return
	}
	if err := h.Store.SaveRuleConfiguration(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save configuration", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCommissionRules returns the commission schedules as their JSON document.
func (h *Handler) GetCommissionRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.CommissionRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load commission rules", err)
		return
	}
	body, err := factory.MarshalCommissionRules(rules)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to marshal commission rules", err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

// PutCommissionRules replaces the commission schedules from a JSON document.
func (h *Handler) PutCommissionRules(w http.ResponseWriter, r *http.Request) {
	var doc factory.CommissionRulesJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	raw, _ := json.Marshal(doc)
	rules, err := factory.ParseCommissionRules(string(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid commission rules", err)
		return
	}
	if err := h.Store.SaveCommissionRules(r.Context(), rules); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save commission rules", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSellerShifts returns the seller -> shift length mapping.
func (h *Handler) GetSellerShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.Store.SellerShifts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load seller shifts", err)
		return
	}
	out := make(map[string]int, len(shifts))
	for seller, hours := range shifts {
		out[string(seller)] = hours
	}
	writeJSON(w, http.StatusOK, out)
}

// PutSellerShift assigns one seller's shift length.
func (h *Handler) PutSellerShift(w http.ResponseWriter, r *http.Request) {
	seller := billing.SellerID(chi.URLParam(r, "id"))

	var req ShiftRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Store.SaveSellerShift(r.Context(), seller, req.Hours); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save seller shift", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadSales(ctx context.Context) ([]billing.SaleRecord, billing.RuleConfiguration, error) {
	sales, err := h.Store.ListSales(ctx)
	if err != nil {
		return nil, billing.RuleConfiguration{}, err
	}
	cfg, err := h.Store.RuleConfiguration(ctx)
	if err != nil {
		return nil, billing.RuleConfiguration{}, err
	}
	return sales, cfg, nil
}

func (h *Handler) periodParam(w http.ResponseWriter, r *http.Request) (billing.Month, bool) {
	period, err := billing.ParseMonth(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return billing.Month{}, false
	}
	return period, true
}

// decode parses and validates a request body, writing the error response
// itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeDomainError maps engine errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, billing.ErrPeriodLocked):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeRawJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
