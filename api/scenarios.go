/*
scenarios.go - Demo scenario seeding

PURPOSE:
  Seeds the store with recognizable datasets for demos and manual
  testing. Each scenario exercises a specific corner of the engine:
  every formula branch, the absorbable quota boundary, the portfolio
  split between automatic and manual sources.

SCENARIOS:
  formula-branches:  One sale per valuation branch in the current month
  commission-quota:  A 5-hour seller one sale past the absorbable quota,
                     plus a special-plan sale
  portfolio-mix:     Approved Prevención sales plus manual clients

SEE ALSO:
  - handlers.go: ListScenarios / LoadScenario endpoints
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andesalud/billing-engine/billing"
)

// =============================================================================
// SCENARIO CATALOG
// =============================================================================

type scenario struct {
	ID          string
	Name        string
	Description string
	Load        func(ctx context.Context, store billing.Store) error
}

func scenarios() []scenario {
	return []scenario{
		{
			ID:          "formula-branches",
			Name:        "Formula branches",
			Description: "One sale per valuation branch: Prevención, AMPF, DoctoRed (both conditions), generic, pass",
			Load:        loadFormulaBranches,
		},
		{
			ID:          "commission-quota",
			Name:        "Commission quota boundary",
			Description: "A 5-hour seller with 9 variable sales (one payable) and one special-plan sale",
			Load:        loadCommissionQuota,
		},
		{
			ID:          "portfolio-mix",
			Name:        "Portfolio mix",
			Description: "Approved Prevención sales plus manual portfolio clients",
			Load:        loadPortfolioMix,
		},
	}
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the demo scenario catalog.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all := scenarios()
	dtos := make([]ScenarioDTO, len(all))
	for i, s := range all {
		dtos[i] = ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario seeds the store with one scenario's dataset.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	for _, s := range scenarios() {
		if s.ID != req.ID {
			continue
		}
		if err := s.Load(r.Context(), h.Store); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
			return
		}
		h.currentScenario = s.ID
		writeJSON(w, http.StatusOK, ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description})
		return
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.ID), nil)
}

// =============================================================================
// SEED DATA
// =============================================================================

func newID() string { return uuid.NewString() }

func seedSale(seller, client, insurer, plan string, day int, gross float64) billing.SaleRecord {
	now := time.Now()
	return billing.SaleRecord{
		ID:         billing.RecordID(newID()),
		Client:     client,
		EntryDate:  time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, time.UTC),
		Seller:     billing.SellerID(seller),
		Insurer:    insurer,
		Plan:       plan,
		GrossPrice: decimal.NewFromFloat(gross),
		Type:       billing.RecordAlta,
	}
}

func loadFormulaBranches(ctx context.Context, store billing.Store) error {
	prevencion := seedSale("lucia", "Marta Ibáñez", "Prevención Salud", "A2", 3, 80000)
	prevencion.Discount = decimal.NewFromFloat(5000)

	doctoredEmployed := seedSale("lucia", "Pablo Suárez", "DoctoRed", "D500", 6, 40000)
	doctoredEmployed.Condition = "Relación de dependencia"
	doctoredEmployed.Aportes = decimal.NewFromFloat(25000)

	pass := seedSale("diego", "Traslado Fernández", "Prevención Salud (pass)", "A1", 9, 60000)
	pass.Type = billing.RecordPass

	sales := []billing.SaleRecord{
		prevencion,
		seedSale("diego", "Jorge Medina", "AMPF", "Integral", 4, 50000),
		doctoredEmployed,
		seedSale("diego", "Nora Castro", "DoctoRed", "D500", 7, 40000),
		seedSale("lucia", "Hernán Ruiz", "Sancor Salud", "S3000", 8, 45000),
		pass,
	}
	for _, s := range sales {
		if err := store.SaveSale(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func loadCommissionQuota(ctx context.Context, store billing.Store) error {
	if err := store.SaveSellerShift(ctx, "carla", 5); err != nil {
		return err
	}

	// Nine variable sales: the first eight are absorbed, the ninth pays.
	for day := 1; day <= 9; day++ {
		s := seedSale("carla", fmt.Sprintf("Cliente %02d", day), "AMPF", "Integral", day, 5000)
		s.Approved = true
		if err := store.SaveSale(ctx, s); err != nil {
			return err
		}
	}

	special := seedSale("carla", "Cliente Cerca", "Prevención Salud", "Cerca", 10, 30000)
	special.Approved = true
	return store.SaveSale(ctx, special)
}

func loadPortfolioMix(ctx context.Context, store billing.Store) error {
	for day := 2; day <= 6; day += 2 {
		s := seedSale("lucia", fmt.Sprintf("Socio %02d", day), "Prevención Salud", "A3", day, 70000)
		s.Approved = true
		if err := store.SaveSale(ctx, s); err != nil {
			return err
		}
	}

	clients := []billing.ManualPortfolioClient{
		{ID: newID(), Name: "Estudio Ramírez", Insurer: "Prevención Salud", Plan: "A4",
			GrossPrice: decimal.NewFromFloat(120000), LiquidationValue: decimal.NewFromFloat(150000)},
		{ID: newID(), Name: "Familia Ortiz", Insurer: "Prevención Salud", Plan: "A2",
			GrossPrice: decimal.NewFromFloat(90000), LiquidationValue: decimal.NewFromFloat(110000)},
	}
	for _, c := range clients {
		if err := store.CreateManualClient(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
