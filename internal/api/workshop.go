package api

import (
	"net/http"

	"github.com/atlasherbaltea-design/otg-track-99/internal/calc"
	"github.com/atlasherbaltea-design/otg-track-99/internal/codegen"
	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

// WorkshopHandler serves the workshop vocabulary and the cost calculator.
type WorkshopHandler struct {
	deps Deps
}

type configResponse struct {
	Machines        []string                      `json:"machines"`
	Suppliers       []string                      `json:"suppliers"`
	Operators       []string                      `json:"operators"`
	CustomFields    []model.CustomFieldDefinition `json:"custom_fields"`
	Templates       codegen.Templates             `json:"templates"`
	Statuses        []model.Status                `json:"statuses"`
	Permissions     []string                      `json:"permissions"`
	InsightsEnabled bool                          `json:"insights_enabled"`
	Calculator      calc.Input                    `json:"calculator_defaults"`
}

// Config handles GET /api/config.
func (h *WorkshopHandler) Config(w http.ResponseWriter, r *http.Request) {
	ws := h.deps.Config.Workshop
	fields := ws.CustomFields
	if fields == nil {
		fields = []model.CustomFieldDefinition{}
	}
	jsonResponse(w, http.StatusOK, configResponse{
		Machines:        ws.Machines,
		Suppliers:       ws.Suppliers,
		Operators:       ws.Operators,
		CustomFields:    fields,
		Templates:       ws.CodeTemplates(),
		Statuses:        model.Statuses,
		Permissions:     model.AllPermissions,
		InsightsEnabled: h.deps.Insights.Enabled(),
		Calculator:      calc.Defaults(),
	})
}

// Calculate handles POST /api/calculator.
func (h *WorkshopHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	in := calc.Defaults()
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	est, err := calc.Compute(in)
	if err != nil {
		validationError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, est)
}
