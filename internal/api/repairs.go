package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
	"github.com/atlasherbaltea-design/otg-track-99/internal/sheet"
	"github.com/atlasherbaltea-design/otg-track-99/internal/store"
)

// RepairsHandler handles the OTG repair ticket endpoints.
type RepairsHandler struct {
	deps Deps
}

// List handles GET /api/repairs?status=&machine=.
func (h *RepairsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st := q.Get("status")
	if st != "" && st != model.RepairOpen && st != model.RepairClosed {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	repairs, err := store.ListRepairs(r.Context(), h.deps.DB, store.RepairFilter{
		Status:  st,
		Machine: q.Get("machine"),
	})
	if err != nil {
		serverError(w, r, "failed to list repairs", err)
		return
	}
	jsonResponse(w, http.StatusOK, repairs)
}

// Create handles POST /api/repairs.
func (h *RepairsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rep model.Repair
	if err := decodeJSON(r, &rep); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rep.ID = uuid.NewString()
	if !h.prepare(w, r, &rep) {
		return
	}

	created, err := store.CreateRepair(r.Context(), h.deps.DB, &rep)
	if err != nil {
		serverError(w, r, "failed to create repair", err)
		return
	}

	slog.Info("repair declared", "user", GetClaims(r.Context()).Username, "repair", created.ID,
		"type", created.Type, "code", created.LinkedCode, "machine", created.Machine)
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/repairs/{id}.
func (h *RepairsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := store.GetRepair(r.Context(), h.deps.DB, r.PathValue("id"))
	if err != nil {
		serverError(w, r, "failed to get repair", err)
		return
	}
	if rep == nil {
		jsonError(w, http.StatusNotFound, "repair not found")
		return
	}
	jsonResponse(w, http.StatusOK, rep)
}

// Update handles PUT /api/repairs/{id}.
func (h *RepairsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var rep model.Repair
	if err := decodeJSON(r, &rep); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rep.ID = r.PathValue("id")
	if !h.prepare(w, r, &rep) {
		return
	}

	found, err := store.UpdateRepair(r.Context(), h.deps.DB, &rep)
	if err != nil {
		serverError(w, r, "failed to update repair", err)
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "repair not found")
		return
	}

	updated, err := store.GetRepair(r.Context(), h.deps.DB, rep.ID)
	if err != nil || updated == nil {
		serverError(w, r, "failed to update repair", err)
		return
	}
	slog.Info("repair updated", "user", GetClaims(r.Context()).Username, "repair", rep.ID, "status", updated.Status)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/repairs/{id}.
func (h *RepairsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found, err := store.DeleteRepair(r.Context(), h.deps.DB, id)
	if err != nil {
		serverError(w, r, "failed to delete repair", err)
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "repair not found")
		return
	}

	slog.Info("repair deleted", "user", GetClaims(r.Context()).Username, "repair", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "repair deleted"})
}

// Codes handles GET /api/repairs/codes?type=&q=, listing the inventory
// codes a ticket can be linked to.
func (h *RepairsHandler) Codes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t := model.AssetType(q.Get("type"))
	if t == "" {
		t = model.AssetCliche
	}
	if !t.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid type")
		return
	}

	codes, err := store.ListCodes(r.Context(), h.deps.DB, t, q.Get("q"))
	if err != nil {
		serverError(w, r, "failed to list codes", err)
		return
	}
	jsonResponse(w, http.StatusOK, codes)
}

// prepare fills defaults on a submitted ticket and validates it. The machine
// defaults to the one of the newest job using the linked code. It writes the
// error response itself and reports whether the ticket may be saved.
func (h *RepairsHandler) prepare(w http.ResponseWriter, r *http.Request, rep *model.Repair) bool {
	rep.Normalize()
	if rep.DeclarationDate == "" {
		rep.DeclarationDate = h.deps.Today()
	}
	if rep.Operator == "" {
		rep.Operator = sheet.UnknownOperator
	}
	if rep.Kind == model.RepairInternal {
		rep.Supplier = ""
	}
	rep.ProblemDescription = strings.TrimSpace(rep.ProblemDescription)
	rep.CorrectiveAction = strings.TrimSpace(rep.CorrectiveAction)

	if err := rep.Validate(); err != nil {
		validationError(w, err)
		return false
	}

	if rep.Machine == "" {
		machine, err := store.MachineForCode(r.Context(), h.deps.DB, rep.Type, rep.LinkedCode)
		if err != nil {
			serverError(w, r, "failed to look up machine", err)
			return false
		}
		if machine == "" {
			machine = h.deps.Config.Workshop.DefaultMachine()
		}
		rep.Machine = machine
	}
	return true
}
