package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/atlasherbaltea-design/otg-track-99/internal/codegen"
	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
	"github.com/atlasherbaltea-design/otg-track-99/internal/status"
	"github.com/atlasherbaltea-design/otg-track-99/internal/store"
)

// ItemsHandler handles the production inventory endpoints.
type ItemsHandler struct {
	deps      Deps
	templates codegen.Templates
}

// itemView is an item together with its status as of the request.
type itemView struct {
	model.Item
	Status       model.Status `json:"status"`
	ClicheStatus model.Status `json:"cliche_status"`
	FormeStatus  model.Status `json:"forme_status"`
}

func (h *ItemsHandler) view(it model.Item, today string) itemView {
	return itemView{
		Item:         it,
		Status:       status.Derive(it, today),
		ClicheStatus: status.DeriveAsset(it.Cliche.IsOrdered, it.Cliche.DateExpected, it.Cliche.DateDelivery, today),
		FormeStatus:  status.DeriveAsset(it.Forme.IsOrdered, it.Forme.DateExpected, it.Forme.DateDelivery, today),
	}
}

// itemRequest is the create/update payload. With AutoCodes set, the codes
// of the needed assets are generated from the machine's templates. A job
// needs a cliché and no forme unless told otherwise.
type itemRequest struct {
	model.Item
	AutoCodes   bool  `json:"auto_codes"`
	NeedsCliche *bool `json:"needs_cliche"`
	NeedsForme  *bool `json:"needs_forme"`
}

func (req itemRequest) needs() (cliche, forme bool) {
	cliche, forme = true, false
	if req.NeedsCliche != nil {
		cliche = *req.NeedsCliche
	}
	if req.NeedsForme != nil {
		forme = *req.NeedsForme
	}
	return cliche, forme
}


// List handles GET /api/items?status=&machine=&q=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	want, ok := status.ParseStatus(q.Get("status"))
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := store.ListItems(r.Context(), h.deps.DB, store.ItemFilter{
		Machine: q.Get("machine"),
		Query:   q.Get("q"),
	})
	if err != nil {
		serverError(w, r, "failed to list items", err)
		return
	}

	today := h.deps.Today()
	if want != "" {
		items = status.Filter(items, want, today)
	}
	views := make([]itemView, 0, len(items))
	for _, it := range items {
		views = append(views, h.view(it, today))
	}
	jsonResponse(w, http.StatusOK, views)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	it := req.Item
	it.ID = uuid.NewString()
	if err := h.prepare(&it); err != nil {
		validationError(w, err)
		return
	}

	if req.AutoCodes {
		items, err := store.ListItems(r.Context(), h.deps.DB, store.ItemFilter{})
		if err != nil {
			serverError(w, r, "failed to create item", err)
			return
		}
		cliche, forme := h.templates.NextCodes(it.Machine, items)
		needsCliche, needsForme := req.needs()
		it.Cliche.Code, it.Forme.Code = "", ""
		if needsCliche {
			it.Cliche.Code = cliche
		}
		if needsForme {
			it.Forme.Code = forme
		}
	}
	it.DropUnneededSuppliers()

	created, err := store.CreateItem(r.Context(), h.deps.DB, &it)
	if err != nil {
		serverError(w, r, "failed to create item", err)
		return
	}

	slog.Info("item created", "user", GetClaims(r.Context()).Username, "item", created.ID,
		"machine", created.Machine, "cliche", created.Cliche.Code, "forme", created.Forme.Code)
	jsonResponse(w, http.StatusCreated, h.view(*created, h.deps.Today()))
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.deps.DB, r.PathValue("id"))
	if err != nil {
		serverError(w, r, "failed to get item", err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, h.view(*item, h.deps.Today()))
}

// Update handles PUT /api/items/{id}. Codes are kept as submitted.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	it := req.Item
	it.ID = r.PathValue("id")
	if err := h.prepare(&it); err != nil {
		validationError(w, err)
		return
	}
	it.DropUnneededSuppliers()

	found, err := store.UpdateItem(r.Context(), h.deps.DB, &it)
	if err != nil {
		serverError(w, r, "failed to update item", err)
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	updated, err := store.GetItem(r.Context(), h.deps.DB, it.ID)
	if err != nil || updated == nil {
		serverError(w, r, "failed to update item", err)
		return
	}
	slog.Info("item updated", "user", GetClaims(r.Context()).Username, "item", it.ID)
	jsonResponse(w, http.StatusOK, h.view(*updated, h.deps.Today()))
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found, err := store.DeleteItem(r.Context(), h.deps.DB, id)
	if err != nil {
		serverError(w, r, "failed to delete item", err)
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	slog.Info("item deleted", "user", GetClaims(r.Context()).Username, "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// NextCodes handles GET /api/codes/next?machine=.
func (h *ItemsHandler) NextCodes(w http.ResponseWriter, r *http.Request) {
	machine := strings.TrimSpace(r.URL.Query().Get("machine"))
	if machine == "" {
		machine = h.deps.Config.Workshop.DefaultMachine()
	}

	items, err := store.ListItems(r.Context(), h.deps.DB, store.ItemFilter{})
	if err != nil {
		serverError(w, r, "failed to compute codes", err)
		return
	}

	cliche, forme := h.templates.NextCodes(machine, items)
	jsonResponse(w, http.StatusOK, map[string]string{
		"machine": machine,
		"cliche":  cliche,
		"forme":   forme,
	})
}

// prepare fills defaults on a submitted item and validates it.
func (h *ItemsHandler) prepare(it *model.Item) error {
	it.Normalize()
	if it.Machine == "" {
		it.Machine = h.deps.Config.Workshop.DefaultMachine()
	}
	if it.DateCreation == "" {
		it.DateCreation = h.deps.Today()
	}
	for _, a := range []*model.Asset{&it.Cliche, &it.Forme} {
		if a.DateCreation == "" {
			a.DateCreation = it.DateCreation
		}
	}

	var errs []error
	fields := it.DateFields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if !model.ValidDate(fields[name]) {
			errs = append(errs, fmt.Errorf("invalid %s", name))
		}
	}

	custom := make(map[string]string, len(it.CustomFields))
	for _, f := range h.deps.Config.Workshop.CustomFields {
		v := strings.TrimSpace(it.CustomFields[f.ID])
		if v == "" {
			continue
		}
		switch f.Type {
		case model.CustomFieldNumber:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				errs = append(errs, fmt.Errorf("%s must be a number", f.Label))
			}
		case model.CustomFieldDate:
			if !model.ValidDate(v) {
				errs = append(errs, fmt.Errorf("%s must be a YYYY-MM-DD date", f.Label))
			}
		}
		custom[f.ID] = v
	}
	it.CustomFields = custom

	return errors.Join(errs...)
}
