package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atlasherbaltea-design/otg-track-99/internal/insights"
	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
	"github.com/atlasherbaltea-design/otg-track-99/internal/stats"
	"github.com/atlasherbaltea-design/otg-track-99/internal/store"
)

// lastInsightKey stores the most recent AI summary in the settings table.
const lastInsightKey = "last_insight"

// DashboardHandler serves the production dashboard.
type DashboardHandler struct {
	deps Deps
}

type dashboardResponse struct {
	Machine     string                `json:"machine,omitempty"`
	Summary     stats.Summary         `json:"summary"`
	Repairs     stats.RepairSummary   `json:"repairs"`
	Suppliers   []stats.SupplierStats `json:"suppliers"`
	Machines    []stats.MachineStats  `json:"machines"`
	LastInsight string                `json:"last_insight,omitempty"`
	InsightsOn  bool                  `json:"insights_enabled"`
}

type insightsRequest struct {
	Lang    string `json:"lang"`
	Machine string `json:"machine"`
}

func (h *DashboardHandler) load(r *http.Request) ([]model.Item, []model.Repair, error) {
	items, err := store.ListItems(r.Context(), h.deps.DB, store.ItemFilter{})
	if err != nil {
		return nil, nil, err
	}
	repairs, err := store.ListRepairs(r.Context(), h.deps.DB, store.RepairFilter{})
	if err != nil {
		return nil, nil, err
	}
	return items, repairs, nil
}

// Get handles GET /api/dashboard?machine=. The machine filter narrows the
// summary, repair and supplier figures; the per-machine table always covers
// every machine.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	machine := strings.TrimSpace(r.URL.Query().Get("machine"))

	items, repairs, err := h.load(r)
	if err != nil {
		serverError(w, r, "failed to load dashboard", err)
		return
	}

	last, err := store.GetSetting(r.Context(), h.deps.DB, lastInsightKey)
	if err != nil {
		serverError(w, r, "failed to load dashboard", err)
		return
	}

	today := h.deps.Today()
	ws := h.deps.Config.Workshop
	scoped := stats.FilterItems(items, machine)
	jsonResponse(w, http.StatusOK, dashboardResponse{
		Machine:     machine,
		Summary:     stats.Summarize(scoped, today),
		Repairs:     stats.Repairs(stats.FilterRepairs(repairs, machine), h.deps.Now()),
		Suppliers:   stats.Suppliers(scoped, ws.Suppliers, today),
		Machines:    stats.Machines(items, repairs, ws.Machines, today),
		LastInsight: last,
		InsightsOn:  h.deps.Insights.Enabled(),
	})
}

// Insights handles POST /api/dashboard/insights.
func (h *DashboardHandler) Insights(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Insights.Enabled() {
		jsonError(w, http.StatusServiceUnavailable, "insights are not configured")
		return
	}

	var req insightsRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	items, repairs, err := h.load(r)
	if err != nil {
		serverError(w, r, "failed to load dashboard", err)
		return
	}
	items = stats.FilterItems(items, req.Machine)
	repairs = stats.FilterRepairs(repairs, req.Machine)

	summary := stats.Summarize(items, h.deps.Today())
	figures := insights.Figures{
		Total:       summary.Total,
		Delayed:     summary.Delayed,
		NonConform:  summary.NonConform,
		OpenRepairs: stats.Repairs(repairs, h.deps.Now()).Open,
	}

	text, err := h.deps.Insights.Summarize(r.Context(), figures, req.Lang)
	if errors.Is(err, insights.ErrDisabled) {
		jsonError(w, http.StatusServiceUnavailable, "insights are not configured")
		return
	}
	if err != nil {
		slog.Error("insights request failed", "error", err)
		jsonError(w, http.StatusBadGateway, "insights request failed")
		return
	}

	if err := store.SetSetting(r.Context(), h.deps.DB, lastInsightKey, text); err != nil {
		slog.Warn("failed to store insight", "error", err)
	}

	jsonResponse(w, http.StatusOK, map[string]any{"text": text, "figures": figures})
}
