package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

type repairRow struct {
	ID                 string    `db:"id"`
	Type               string    `db:"type"`
	LinkedCode         string    `db:"linked_code"`
	Operator           string    `db:"operator"`
	Machine            string    `db:"machine"`
	Condition          string    `db:"condition"`
	Kind               string    `db:"kind"`
	Supplier           string    `db:"supplier"`
	DeclarationDate    string    `db:"declaration_date"`
	RepairDate         string    `db:"repair_date"`
	ProblemDescription string    `db:"problem_description"`
	CorrectiveAction   string    `db:"corrective_action"`
	Status             string    `db:"status"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

const repairColumns = `id, type, linked_code, operator, machine, condition, kind, supplier,
	declaration_date, repair_date, problem_description, corrective_action, status,
	created_at, updated_at`

const insertRepair = `INSERT INTO repairs (id, type, linked_code, operator, machine, condition, kind,
	supplier, declaration_date, repair_date, problem_description, corrective_action, status)
VALUES (:id, :type, :linked_code, :operator, :machine, :condition, :kind,
	:supplier, :declaration_date, :repair_date, :problem_description, :corrective_action, :status)`

func toRepairRow(r *model.Repair) repairRow {
	return repairRow{
		ID:                 r.ID,
		Type:               string(r.Type),
		LinkedCode:         r.LinkedCode,
		Operator:           r.Operator,
		Machine:            r.Machine,
		Condition:          r.Condition,
		Kind:               r.Kind,
		Supplier:           r.Supplier,
		DeclarationDate:    r.DeclarationDate,
		RepairDate:         r.RepairDate,
		ProblemDescription: r.ProblemDescription,
		CorrectiveAction:   r.CorrectiveAction,
		Status:             r.Status,
	}
}

func (r repairRow) repair() model.Repair {
	return model.Repair{
		ID:                 r.ID,
		Type:               model.AssetType(r.Type),
		LinkedCode:         r.LinkedCode,
		Operator:           r.Operator,
		Machine:            r.Machine,
		Condition:          r.Condition,
		Kind:               r.Kind,
		Supplier:           r.Supplier,
		DeclarationDate:    r.DeclarationDate,
		RepairDate:         r.RepairDate,
		ProblemDescription: r.ProblemDescription,
		CorrectiveAction:   r.CorrectiveAction,
		Status:             r.Status,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// CreateRepair inserts a new repair ticket. The ticket must carry its identifier.
func CreateRepair(ctx context.Context, db *sql.DB, r *model.Repair) (*model.Repair, error) {
	if _, err := dbx(db).NamedExecContext(ctx, insertRepair, toRepairRow(r)); err != nil {
		return nil, fmt.Errorf("creating repair: %w", err)
	}
	return GetRepair(ctx, db, r.ID)
}

// GetRepair returns a repair ticket by ID.
func GetRepair(ctx context.Context, db *sql.DB, id string) (*model.Repair, error) {
	var row repairRow
	err := dbx(db).GetContext(ctx, &row, `SELECT `+repairColumns+` FROM repairs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting repair: %w", err)
	}
	r := row.repair()
	return &r, nil
}

// RepairFilter narrows ListRepairs. Zero values match everything.
type RepairFilter struct {
	Status  string
	Machine string
}

// ListRepairs returns repair tickets newest first.
func ListRepairs(ctx context.Context, db *sql.DB, f RepairFilter) ([]model.Repair, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Machine != "" {
		where = append(where, "machine = ?")
		args = append(args, f.Machine)
	}

	query := `SELECT ` + repairColumns + ` FROM repairs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	var rows []repairRow
	if err := dbx(db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing repairs: %w", err)
	}

	repairs := make([]model.Repair, 0, len(rows))
	for _, row := range rows {
		repairs = append(repairs, row.repair())
	}
	return repairs, nil
}

// UpdateRepair overwrites a repair ticket. It reports whether the ticket existed.
func UpdateRepair(ctx context.Context, db *sql.DB, r *model.Repair) (bool, error) {
	result, err := dbx(db).NamedExecContext(ctx,
		`UPDATE repairs SET type = :type, linked_code = :linked_code, operator = :operator,
			machine = :machine, condition = :condition, kind = :kind, supplier = :supplier,
			declaration_date = :declaration_date, repair_date = :repair_date,
			problem_description = :problem_description, corrective_action = :corrective_action,
			status = :status, updated_at = CURRENT_TIMESTAMP
		 WHERE id = :id`, toRepairRow(r),
	)
	if err != nil {
		return false, fmt.Errorf("updating repair: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating repair: %w", err)
	}
	return n > 0, nil
}

// DeleteRepair removes a repair ticket. It reports whether the ticket existed.
func DeleteRepair(ctx context.Context, db *sql.DB, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM repairs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting repair: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting repair: %w", err)
	}
	return n > 0, nil
}

// ReplaceRepairs replaces every repair ticket in one transaction. ListRepairs
// afterwards returns the tickets in the given order.
func ReplaceRepairs(ctx context.Context, db *sql.DB, repairs []model.Repair) error {
	tx, err := dbx(db).BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM repairs`); err != nil {
		return fmt.Errorf("clearing repairs: %w", err)
	}
	for _, r := range slices.Backward(repairs) {
		if _, err := tx.NamedExecContext(ctx, insertRepair, toRepairRow(&r)); err != nil {
			return fmt.Errorf("inserting repair %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing repairs: %w", err)
	}
	return nil
}
