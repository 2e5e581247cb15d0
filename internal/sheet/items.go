package sheet

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
	"github.com/atlasherbaltea-design/otg-track-99/internal/status"
)

// ProductionSheet is the sheet name of production exports.
const ProductionSheet = "PRODUCTION"

// Production sheet headers.
const (
	ColElement         = "Désignation Élément"
	ColClient          = "Client"
	ColReference       = "Référence"
	ColMachine         = "Machine"
	ColCliche          = "Cliché"
	ColForme           = "Forme"
	ColClicheSupplier  = "Fournisseur Cliché"
	ColFormeSupplier   = "Fournisseur Forme"
	ColPoses           = "Poses"
	ColDateCreation    = "Date Création"
	ColClicheOrdered   = "Cliché Commandé"
	ColClicheDateOrder = "Date Commande Cliché"
	ColClicheExpected  = "Date Prévue Cliché"
	ColClicheDelivery  = "Date Réception Cliché"
	ColFormeOrdered    = "Forme Commandée"
	ColFormeDateOrder  = "Date Commande Forme"
	ColFormeExpected   = "Date Prévue Forme"
	ColFormeDelivery   = "Date Réception Forme"
	ColNotes           = "Notes"
	ColNonConformity   = "SAV"
	ColStatus          = "Statut Actuel"
)

var itemColumns = []string{
	ColElement, ColClient, ColReference, ColMachine, ColCliche, ColForme,
	ColClicheSupplier, ColFormeSupplier, ColPoses, ColDateCreation,
	ColClicheOrdered, ColClicheDateOrder, ColClicheExpected, ColClicheDelivery,
	ColFormeOrdered, ColFormeDateOrder, ColFormeExpected, ColFormeDelivery,
	ColNotes, ColNonConformity, ColStatus,
}

// StatusLabels are the French status names written to exports.
var StatusLabels = map[model.Status]string{
	model.StatusNotOrdered: "Non Commandé",
	model.StatusOrdered:    "En Commande",
	model.StatusReceived:   "Reçu",
	model.StatusDelayed:    "En Retard",
}

// ItemsTable renders items as a production sheet, one column per custom
// field after the fixed ones. The status column is derived as of today.
func ItemsTable(items []model.Item, fields []model.CustomFieldDefinition, today string) *Table {
	header := append([]string{}, itemColumns...)
	for _, f := range fields {
		header = append(header, fieldHeader(f))
	}

	t := &Table{Header: header, Rows: make([][]string, 0, len(items))}
	for _, it := range items {
		rec := []string{
			it.Element, it.Client, it.Reference, it.Machine,
			it.Cliche.Code, it.Forme.Code,
			it.Cliche.Supplier, it.Forme.Supplier,
			strconv.Itoa(it.Poses), it.DateCreation,
			yesNo(it.Cliche.IsOrdered), it.Cliche.DateOrder, it.Cliche.DateExpected, it.Cliche.DateDelivery,
			yesNo(it.Forme.IsOrdered), it.Forme.DateOrder, it.Forme.DateExpected, it.Forme.DateDelivery,
			it.Comments, it.NonConformity,
			StatusLabels[status.Derive(it, today)],
		}
		for _, f := range fields {
			rec = append(rec, it.CustomFields[f.ID])
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

func fieldHeader(f model.CustomFieldDefinition) string {
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

// ItemOptions tunes ParseItems.
type ItemOptions struct {
	// DefaultMachine is assigned to rows without a machine.
	DefaultMachine string
	// CustomFields are read from columns named after their labels.
	CustomFields []model.CustomFieldDefinition
	// NewID generates item identifiers. Defaults to random UUIDs.
	NewID func() string
}

// ParseItems turns a production sheet into items. Every row gets a fresh
// identifier and both asset creation dates copy the row's creation date.
// If any cell is invalid no items are returned and the error is an
// *ImportError listing every problem.
func ParseItems(t *Table, opts ItemOptions) ([]model.Item, error) {
	if t == nil || len(t.Rows) == 0 {
		return nil, ErrEmpty
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	r := newRows(t)
	items := make([]model.Item, 0, len(t.Rows))
	var errs []RowError

	for i := range t.Rows {
		n := line(i)
		date := func(col string, aliases ...string) string {
			v, err := ParseDate(r.cell(i, append([]string{col}, aliases...)...))
			if err != nil {
				errs = append(errs, RowError{Row: n, Column: col, Message: err.Error()})
			}
			return v
		}

		created := date(ColDateCreation, "dateCreation")
		it := model.Item{
			ID:            newID(),
			Element:       r.cell(i, ColElement, "Item Designation", "element"),
			Client:        r.cell(i, ColClient),
			Reference:     r.cell(i, ColReference, "Reference"),
			Machine:       r.cell(i, ColMachine),
			Poses:         parsePoses(r.cell(i, ColPoses)),
			DateCreation:  created,
			Comments:      r.cell(i, ColNotes),
			NonConformity: r.cell(i, ColNonConformity),
			Cliche: model.Asset{
				Code:         r.cell(i, ColCliche, "Stereo (Cliche)"),
				Supplier:     r.cell(i, ColClicheSupplier),
				DateCreation: created,
				IsOrdered:    parseYes(r.cell(i, ColClicheOrdered)),
				DateOrder:    date(ColClicheDateOrder),
				DateExpected: date(ColClicheExpected),
				DateDelivery: date(ColClicheDelivery),
			},
			Forme: model.Asset{
				Code:         r.cell(i, ColForme, "Die-Cut (Forme)"),
				Supplier:     r.cell(i, ColFormeSupplier),
				DateCreation: created,
				IsOrdered:    parseYes(r.cell(i, ColFormeOrdered)),
				DateOrder:    date(ColFormeDateOrder),
				DateExpected: date(ColFormeExpected),
				DateDelivery: date(ColFormeDelivery),
			},
			CustomFields: map[string]string{},
		}
		if it.Machine == "" {
			it.Machine = opts.DefaultMachine
		}

		for _, f := range opts.CustomFields {
			col := fieldHeader(f)
			v := r.cell(i, col, f.ID)
			if v == "" {
				continue
			}
			switch f.Type {
			case model.CustomFieldNumber:
				if _, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64); err != nil {
					errs = append(errs, RowError{Row: n, Column: col, Message: "not a number"})
					continue
				}
			case model.CustomFieldDate:
				d, err := ParseDate(v)
				if err != nil {
					errs = append(errs, RowError{Row: n, Column: col, Message: err.Error()})
					continue
				}
				v = d
			}
			it.CustomFields[f.ID] = v
		}

		it.Normalize()
		it.DropUnneededSuppliers()
		items = append(items, it)
	}

	if len(errs) > 0 {
		return nil, &ImportError{Errors: errs}
	}
	return items, nil
}
