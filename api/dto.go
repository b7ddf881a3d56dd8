/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry validator/v10 struct tags, checked in handlers
  before any domain call. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rules.go: The rule-document JSON schema reused by the
    configuration endpoints
*/
package api

import (
	"time"

	"github.com/andesalud/billing-engine/billing"
)

// =============================================================================
// SALE TYPES
// =============================================================================

// SaleDTO represents a sale record with its computed valuation.
type SaleDTO struct {
	ID        string `json:"id"`
	Client    string `json:"client"`
	EntryDate string `json:"entry_date"`
	Seller    string `json:"seller"`
	Condition string `json:"condition,omitempty"`
	Insurer   string `json:"insurer"`
	Plan      string `json:"plan,omitempty"`
	Type      string `json:"type"`

	GrossPrice float64 `json:"gross_price"`
	Aportes    float64 `json:"aportes"`
	Discount   float64 `json:"discount"`

	Approved          bool     `json:"approved"`
	Period            *string  `json:"period,omitempty"`
	EffectivePeriod   string   `json:"effective_period"`
	PriceOverride     *float64 `json:"price_override,omitempty"`
	PortfolioOverride *float64 `json:"portfolio_override,omitempty"`

	Value          float64 `json:"value"`
	PortfolioValue float64 `json:"portfolio_value"`
	FormulaLabel   string  `json:"formula_label"`
}

// ValuationDTO represents a single computed valuation.
type ValuationDTO struct {
	Value          float64 `json:"value"`
	PortfolioValue float64 `json:"portfolio_value"`
	FormulaLabel   string  `json:"formula_label"`
}

// DeferRequest kicks a record one billing cycle past the selected month.
type DeferRequest struct {
	SelectedPeriod string `json:"selected_period" validate:"required"`
}

// OverrideRequest sets or clears the record's value overrides. A present
// value sets; the clear flags reset to formula-derived values.
type OverrideRequest struct {
	PriceOverride          *float64 `json:"price_override,omitempty"`
	ClearPriceOverride     bool     `json:"clear_price_override,omitempty"`
	PortfolioOverride      *float64 `json:"portfolio_override,omitempty"`
	ClearPortfolioOverride bool     `json:"clear_portfolio_override,omitempty"`
}

// =============================================================================
// PERIOD TYPES
// =============================================================================

// PeriodSummaryDTO aggregates one billing month for the dashboard.
type PeriodSummaryDTO struct {
	Period        string       `json:"period"`
	Locked        bool         `json:"locked"`
	RecordCount   int          `json:"record_count"`
	ApprovedCount int          `json:"approved_count"`
	TotalValue    float64      `json:"total_value"`
	ApprovedValue float64      `json:"approved_value"`
	Portfolio     PortfolioDTO `json:"portfolio"`
}

// PortfolioDTO is the recurring-revenue projection breakdown.
type PortfolioDTO struct {
	Automatic float64 `json:"automatic"`
	Manual    float64 `json:"manual"`
	Total     float64 `json:"total"`
}

// =============================================================================
// COMMISSION TYPES
// =============================================================================

// CommissionDTO is one seller's commission breakdown.
type CommissionDTO struct {
	Seller             string  `json:"seller"`
	ShiftHours         int     `json:"shift_hours"`
	SpecialCount       int     `json:"special_count"`
	SpecialCommission  float64 `json:"special_commission"`
	VariableCount      int     `json:"variable_count"`
	PayableCount       int     `json:"payable_count"`
	TierPercentage     float64 `json:"tier_percentage"`
	VariableCommission float64 `json:"variable_commission"`
	Total              float64 `json:"total"`
}

// ShiftRequest assigns a seller's shift length.
type ShiftRequest struct {
	Hours int `json:"hours" validate:"required,gt=0,lte=24"`
}

// =============================================================================
// MANUAL PORTFOLIO CLIENT TYPES
// =============================================================================

// ManualClientDTO represents a manual portfolio client.
type ManualClientDTO struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Insurer          string  `json:"insurer,omitempty"`
	Plan             string  `json:"plan,omitempty"`
	GrossPrice       float64 `json:"gross_price"`
	Discount         float64 `json:"discount"`
	LiquidationValue float64 `json:"liquidation_value"`
}

// CreateManualClientRequest creates a manual portfolio client.
type CreateManualClientRequest struct {
	Name             string  `json:"name" validate:"required"`
	Insurer          string  `json:"insurer"`
	Plan             string  `json:"plan"`
	GrossPrice       float64 `json:"gross_price" validate:"gte=0"`
	Discount         float64 `json:"discount" validate:"gte=0"`
	LiquidationValue float64 `json:"liquidation_value" validate:"gte=0"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ID string `json:"id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toSaleDTO(r billing.SaleRecord, v billing.Valuation) SaleDTO {
	dto := SaleDTO{
		ID:              string(r.ID),
		Client:          r.Client,
		EntryDate:       r.EntryDate.Format(time.RFC3339),
		Seller:          string(r.Seller),
		Condition:       r.Condition,
		Insurer:         r.Insurer,
		Plan:            r.Plan,
		Type:            string(r.Type),
		Approved:        r.Approved,
		EffectivePeriod: billing.EffectivePeriod(r).String(),
		FormulaLabel:    v.FormulaLabel,
	}
	dto.GrossPrice, _ = r.GrossPrice.Float64()
	dto.Aportes, _ = r.Aportes.Float64()
	dto.Discount, _ = r.Discount.Float64()
	dto.Value, _ = v.Value.Float64()
	dto.PortfolioValue, _ = v.PortfolioValue.Float64()

	if r.Period != nil {
		p := r.Period.String()
		dto.Period = &p
	}
	if r.PriceOverride != nil {
		f, _ := r.PriceOverride.Float64()
		dto.PriceOverride = &f
	}
	if r.PortfolioOverride != nil {
		f, _ := r.PortfolioOverride.Float64()
		dto.PortfolioOverride = &f
	}
	return dto
}

func toCommissionDTO(c billing.SellerCommission) CommissionDTO {
	dto := CommissionDTO{
		Seller:        string(c.Seller),
		ShiftHours:    c.ShiftHours,
		SpecialCount:  c.SpecialCount,
		VariableCount: c.VariableCount,
		PayableCount:  c.PayableCount,
	}
	dto.SpecialCommission, _ = c.SpecialCommission.Float64()
	dto.TierPercentage, _ = c.TierPercentage.Float64()
	dto.VariableCommission, _ = c.VariableCommission.Float64()
	dto.Total, _ = c.Total.Float64()
	return dto
}

func toPortfolioDTO(p billing.PortfolioProjection) PortfolioDTO {
	var dto PortfolioDTO
	dto.Automatic, _ = p.Automatic.Float64()
	dto.Manual, _ = p.Manual.Float64()
	dto.Total, _ = p.Total.Float64()
	return dto
}

func toManualClientDTO(c billing.ManualPortfolioClient) ManualClientDTO {
	dto := ManualClientDTO{
		ID:      c.ID,
		Name:    c.Name,
		Insurer: c.Insurer,
		Plan:    c.Plan,
	}
	dto.GrossPrice, _ = c.GrossPrice.Float64()
	dto.Discount, _ = c.Discount.Float64()
	dto.LiquidationValue, _ = c.LiquidationValue.Float64()
	return dto
}
