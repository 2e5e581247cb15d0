package model

import (
	"errors"
	"strings"
	"time"
)

// Reported conditions of a tool brought in for repair.
const (
	ConditionRepair     = "repair"
	ConditionDamagedNew = "damaged_new"
	ConditionDesign     = "design"
)

// Repair kinds.
const (
	RepairInternal = "internal"
	RepairExternal = "external"
)

// Repair ticket statuses.
const (
	RepairOpen   = "open"
	RepairClosed = "closed"
)

// Repair is a maintenance ticket for a cliché or forme. LinkedCode should
// match an inventory code of the same type but is not required to.
type Repair struct {
	ID                 string    `json:"id"`
	Type               AssetType `json:"type"`
	LinkedCode         string    `json:"linked_code"`
	Operator           string    `json:"operator"`
	Machine            string    `json:"machine"`
	Condition          string    `json:"condition"`
	Kind               string    `json:"kind"`
	Supplier           string    `json:"supplier,omitempty"`
	DeclarationDate    string    `json:"declaration_date"`
	RepairDate         string    `json:"repair_date,omitempty"`
	ProblemDescription string    `json:"problem_description"`
	CorrectiveAction   string    `json:"corrective_action,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsOpen reports whether the ticket is still open.
func (r Repair) IsOpen() bool {
	return r.Status == RepairOpen
}

// Normalize trims text fields and fills defaults for empty enums.
func (r *Repair) Normalize() {
	r.LinkedCode = strings.TrimSpace(r.LinkedCode)
	r.Operator = strings.TrimSpace(r.Operator)
	r.Machine = strings.TrimSpace(r.Machine)
	r.Supplier = strings.TrimSpace(r.Supplier)
	r.DeclarationDate = strings.TrimSpace(r.DeclarationDate)
	r.RepairDate = strings.TrimSpace(r.RepairDate)
	if r.Type == "" {
		r.Type = AssetCliche
	}
	if r.Condition == "" {
		r.Condition = ConditionRepair
	}
	if r.Kind == "" {
		r.Kind = RepairInternal
	}
	if r.Status == "" {
		r.Status = RepairOpen
	}
}

// Validate checks a repair ticket at the submission boundary.
func (r Repair) Validate() error {
	var errs []error

	if !r.Type.Valid() {
		errs = append(errs, errors.New("invalid type"))
	}
	if r.LinkedCode == "" {
		errs = append(errs, errors.New("linked_code required"))
	}
	switch r.Condition {
	case ConditionRepair, ConditionDamagedNew, ConditionDesign:
	default:
		errs = append(errs, errors.New("invalid condition"))
	}
	switch r.Kind {
	case RepairInternal:
	case RepairExternal:
		if r.Supplier == "" {
			errs = append(errs, errors.New("supplier required for external repairs"))
		}
	default:
		errs = append(errs, errors.New("invalid kind"))
	}
	if r.Status != RepairOpen && r.Status != RepairClosed {
		errs = append(errs, errors.New("invalid status"))
	}
	if !ValidDate(r.DeclarationDate) {
		errs = append(errs, errors.New("invalid declaration_date"))
	}
	if !ValidDate(r.RepairDate) {
		errs = append(errs, errors.New("invalid repair_date"))
	}

	return errors.Join(errs...)
}
