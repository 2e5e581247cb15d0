package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atlasherbaltea-design/otg-track-99/internal/sheet"
	"github.com/atlasherbaltea-design/otg-track-99/internal/store"
)

// MaxImportBytes caps the size of an uploaded spreadsheet.
const MaxImportBytes = 20 << 20

// Import modes of the production sheet.
const (
	importReplace = "replace"
	importAppend  = "append"
)

type importErrorResponse struct {
	Error string           `json:"error"`
	Rows  []sheet.RowError `json:"rows"`
}

// readUpload returns the uploaded file from the "file" field of a multipart
// form or from the raw body, and decodes it into a table. On failure it
// writes the response itself.
func readUpload(w http.ResponseWriter, r *http.Request) (*sheet.Table, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImportBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			jsonError(w, http.StatusBadRequest, "missing file field")
			return nil, false
		}
		defer file.Close()
		body = file
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "file too large")
			return nil, false
		}
		jsonError(w, http.StatusBadRequest, "failed to read file")
		return nil, false
	}

	t, err := sheet.Decode(data)
	if errors.Is(err, sheet.ErrEmpty) {
		jsonError(w, http.StatusBadRequest, "file is empty")
		return nil, false
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, "unreadable spreadsheet: "+err.Error())
		return nil, false
	}
	return t, true
}

// importFailed answers a parse failure: 422 with every row error, 400 otherwise.
func importFailed(w http.ResponseWriter, err error) {
	var ie *sheet.ImportError
	if errors.As(err, &ie) {
		jsonResponse(w, http.StatusUnprocessableEntity, importErrorResponse{
			Error: ie.Error(),
			Rows:  ie.Errors,
		})
		return
	}
	if errors.Is(err, sheet.ErrEmpty) {
		jsonError(w, http.StatusBadRequest, "file is empty")
		return
	}
	jsonError(w, http.StatusBadRequest, err.Error())
}

// writeSheet encodes t in the requested format and sends it as an attachment.
func writeSheet(w http.ResponseWriter, r *http.Request, name, sheetName string, t *sheet.Table) {
	format, err := sheet.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := sheet.Encode(&buf, format, sheetName, t); err != nil {
		serverError(w, r, "failed to export", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.Write(buf.Bytes())
}

// Export handles GET /api/items/export?format=xlsx|csv.
func (h *ItemsHandler) Export(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.deps.DB, store.ItemFilter{})
	if err != nil {
		serverError(w, r, "failed to export", err)
		return
	}

	today := h.deps.Today()
	t := sheet.ItemsTable(items, h.deps.Config.Workshop.CustomFields, today)
	writeSheet(w, r, "production_"+today, sheet.ProductionSheet, t)
}

// Import handles POST /api/items/import?mode=replace|append. Replace is the
// default and swaps the whole collection.
func (h *ItemsHandler) Import(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = importReplace
	}
	if mode != importReplace && mode != importAppend {
		jsonError(w, http.StatusBadRequest, "invalid mode")
		return
	}

	t, ok := readUpload(w, r)
	if !ok {
		return
	}

	items, err := sheet.ParseItems(t, sheet.ItemOptions{
		DefaultMachine: h.deps.Config.Workshop.DefaultMachine(),
		CustomFields:   h.deps.Config.Workshop.CustomFields,
	})
	if err != nil {
		importFailed(w, err)
		return
	}

	if mode == importAppend {
		err = store.AppendItems(r.Context(), h.deps.DB, items)
	} else {
		err = store.ReplaceItems(r.Context(), h.deps.DB, items)
	}
	if err != nil {
		serverError(w, r, "failed to import items", err)
		return
	}

	slog.Info("items imported", "user", GetClaims(r.Context()).Username, "count", len(items), "mode", mode)
	jsonResponse(w, http.StatusOK, map[string]any{"imported": len(items), "mode": mode})
}

// Export handles GET /api/repairs/export?format=xlsx|csv.
func (h *RepairsHandler) Export(w http.ResponseWriter, r *http.Request) {
	repairs, err := store.ListRepairs(r.Context(), h.deps.DB, store.RepairFilter{})
	if err != nil {
		serverError(w, r, "failed to export", err)
		return
	}
	writeSheet(w, r, "reparations_otg_"+h.deps.Today(), sheet.RepairsSheet, sheet.RepairsTable(repairs))
}

// Import handles POST /api/repairs/import. Imported tickets go ahead of the
// existing ones and the oldest beyond sheet.MaxRepairs are dropped.
func (h *RepairsHandler) Import(w http.ResponseWriter, r *http.Request) {
	t, ok := readUpload(w, r)
	if !ok {
		return
	}

	imported, err := sheet.ParseRepairs(t, sheet.RepairOptions{
		DefaultMachine: h.deps.Config.Workshop.DefaultMachine(),
	})
	if err != nil {
		importFailed(w, err)
		return
	}

	existing, err := store.ListRepairs(r.Context(), h.deps.DB, store.RepairFilter{})
	if err != nil {
		serverError(w, r, "failed to import repairs", err)
		return
	}

	all := sheet.PrependRepairs(imported, existing)
	if err := store.ReplaceRepairs(r.Context(), h.deps.DB, all); err != nil {
		serverError(w, r, "failed to import repairs", err)
		return
	}

	slog.Info("repairs imported", "user", GetClaims(r.Context()).Username,
		"count", len(imported), "total", len(all))
	jsonResponse(w, http.StatusOK, map[string]int{"imported": len(imported), "total": len(all)})
}
