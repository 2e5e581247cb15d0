package sheet

import (
	"strings"

	"github.com/google/uuid"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

// RepairsSheet is the sheet name of repair exports.
const RepairsSheet = "REPARATIONS_OTG"

// Repair sheet headers.
const (
	ColToolType         = "Type Outillage"
	ColToolCode         = "Code Outillage"
	ColOperator         = "Conducteur"
	ColRepairMachine    = "Machine"
	ColCondition        = "État Signalé"
	ColKind             = "Type Réparation"
	ColSupplier         = "Fournisseur"
	ColDeclarationDate  = "Date Déclaration"
	ColRepairDate       = "Date Réparation Effectuée"
	ColProblem          = "Problème"
	ColCorrectiveAction = "Action Corrective"
	ColRepairStatus     = "Statut OTG"
)

var repairColumns = []string{
	ColToolType, ColToolCode, ColOperator, ColRepairMachine, ColCondition, ColKind,
	ColSupplier, ColDeclarationDate, ColRepairDate, ColProblem, ColCorrectiveAction,
	ColRepairStatus,
}

// UnknownOperator is recorded for rows without an operator.
const UnknownOperator = "Inconnu"

// Labels written to and recognized in repair sheets.
var (
	typeLabels = map[model.AssetType]string{
		model.AssetCliche: "A – CLICHÉ",
		model.AssetForme:  "B – FORME",
	}
	conditionLabels = map[string]string{
		model.ConditionRepair:     "Réparation",
		model.ConditionDamagedNew: "Abîmé nouveau",
		model.ConditionDesign:     "Conception",
	}
	kindLabels = map[string]string{
		model.RepairInternal: "Réparation INT",
		model.RepairExternal: "Réparation EXT",
	}
	statusLabels = map[string]string{
		model.RepairOpen:   "OUVERT",
		model.RepairClosed: "CLÔTURÉ",
	}
)

// RepairsTable renders repair tickets as a repair sheet.
func RepairsTable(repairs []model.Repair) *Table {
	t := &Table{Header: append([]string{}, repairColumns...), Rows: make([][]string, 0, len(repairs))}
	for _, r := range repairs {
		t.Rows = append(t.Rows, []string{
			typeLabels[r.Type], r.LinkedCode, r.Operator, r.Machine,
			conditionLabels[r.Condition], kindLabels[r.Kind], r.Supplier,
			r.DeclarationDate, r.RepairDate, r.ProblemDescription, r.CorrectiveAction,
			statusLabels[r.Status],
		})
	}
	return t
}

// RepairOptions tunes ParseRepairs.
type RepairOptions struct {
	// DefaultMachine is assigned to rows without a machine.
	DefaultMachine string
	// NewID generates ticket identifiers. Defaults to random UUIDs.
	NewID func() string
}

// ParseRepairs turns a repair sheet into tickets, validating each the same
// way as a submitted form. On any invalid row the error is an *ImportError.
func ParseRepairs(t *Table, opts RepairOptions) ([]model.Repair, error) {
	if t == nil || len(t.Rows) == 0 {
		return nil, ErrEmpty
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	r := newRows(t)
	repairs := make([]model.Repair, 0, len(t.Rows))
	var errs []RowError

	for i := range t.Rows {
		n := line(i)
		date := func(col string) string {
			v, err := ParseDate(r.cell(i, col))
			if err != nil {
				errs = append(errs, RowError{Row: n, Column: col, Message: err.Error()})
			}
			return v
		}

		rep := model.Repair{
			ID:                 newID(),
			Type:               parseToolType(r.cell(i, ColToolType)),
			LinkedCode:         r.cell(i, ColToolCode),
			Operator:           r.cell(i, ColOperator),
			Machine:            r.cell(i, ColRepairMachine),
			Kind:               parseKind(r.cell(i, ColKind)),
			Supplier:           r.cell(i, ColSupplier),
			DeclarationDate:    date(ColDeclarationDate),
			RepairDate:         date(ColRepairDate),
			ProblemDescription: r.cell(i, ColProblem),
			CorrectiveAction:   r.cell(i, ColCorrectiveAction),
			Status:             parseRepairStatus(r.cell(i, ColRepairStatus)),
		}
		if rep.Operator == "" {
			rep.Operator = UnknownOperator
		}
		if rep.Machine == "" {
			rep.Machine = opts.DefaultMachine
		}
		cond, ok := parseCondition(r.cell(i, ColCondition))
		if !ok {
			errs = append(errs, RowError{Row: n, Column: ColCondition, Message: "unknown condition"})
		}
		rep.Condition = cond

		rep.Normalize()
		if ok {
			for _, err := range splitJoined(rep.Validate()) {
				errs = append(errs, RowError{Row: n, Message: err.Error()})
			}
		}
		repairs = append(repairs, rep)
	}

	if len(errs) > 0 {
		return nil, &ImportError{Errors: errs}
	}
	return repairs, nil
}

func parseToolType(s string) model.AssetType {
	if strings.Contains(strings.ToUpper(s), "FORME") {
		return model.AssetForme
	}
	return model.AssetCliche
}

func parseKind(s string) string {
	if strings.Contains(strings.ToUpper(s), "EXT") {
		return model.RepairExternal
	}
	return model.RepairInternal
}

func parseRepairStatus(s string) string {
	u := strings.ToUpper(s)
	if strings.Contains(u, "CLÔTUR") || strings.Contains(u, "CLOTUR") || u == "CLOSED" {
		return model.RepairClosed
	}
	return model.RepairOpen
}

// parseCondition accepts the French label or the stored value. Empty means
// a plain repair.
func parseCondition(s string) (string, bool) {
	if s == "" {
		return model.ConditionRepair, true
	}
	for value, label := range conditionLabels {
		if strings.EqualFold(s, label) || strings.EqualFold(s, value) {
			return value, true
		}
	}
	return "", false
}

func splitJoined(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// MaxRepairs caps the number of stored repair tickets after an import.
const MaxRepairs = 5000

// PrependRepairs puts imported tickets ahead of existing ones and keeps at
// most MaxRepairs of them.
func PrependRepairs(imported, existing []model.Repair) []model.Repair {
	out := make([]model.Repair, 0, len(imported)+len(existing))
	out = append(out, imported...)
	out = append(out, existing...)
	if len(out) > MaxRepairs {
		out = out[:MaxRepairs]
	}
	return out
}
