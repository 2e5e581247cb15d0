package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

// itemRow is the flat storage shape of a model.Item.
type itemRow struct {
	ID                 string    `db:"id"`
	Machine            string    `db:"machine"`
	Client             string    `db:"client"`
	Reference          string    `db:"reference"`
	Element            string    `db:"element"`
	Poses              int       `db:"poses"`
	DateCreation       string    `db:"date_creation"`
	ClicheCode         string    `db:"cliche_code"`
	ClicheSupplier     string    `db:"cliche_supplier"`
	ClicheDateCreation string    `db:"cliche_date_creation"`
	ClicheIsOrdered    bool      `db:"cliche_is_ordered"`
	ClicheDateOrder    string    `db:"cliche_date_order"`
	ClicheDateExpected string    `db:"cliche_date_expected"`
	ClicheDateDelivery string    `db:"cliche_date_delivery"`
	FormeCode          string    `db:"forme_code"`
	FormeSupplier      string    `db:"forme_supplier"`
	FormeDateCreation  string    `db:"forme_date_creation"`
	FormeIsOrdered     bool      `db:"forme_is_ordered"`
	FormeDateOrder     string    `db:"forme_date_order"`
	FormeDateExpected  string    `db:"forme_date_expected"`
	FormeDateDelivery  string    `db:"forme_date_delivery"`
	Comments           string    `db:"comments"`
	NonConformity      string    `db:"non_conformity"`
	CustomFields       string    `db:"custom_fields"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

const itemColumns = `id, machine, client, reference, element, poses, date_creation,
	cliche_code, cliche_supplier, cliche_date_creation, cliche_is_ordered,
	cliche_date_order, cliche_date_expected, cliche_date_delivery,
	forme_code, forme_supplier, forme_date_creation, forme_is_ordered,
	forme_date_order, forme_date_expected, forme_date_delivery,
	comments, non_conformity, custom_fields, created_at, updated_at`

const insertItem = `INSERT INTO items (id, machine, client, reference, element, poses, date_creation,
	cliche_code, cliche_supplier, cliche_date_creation, cliche_is_ordered,
	cliche_date_order, cliche_date_expected, cliche_date_delivery,
	forme_code, forme_supplier, forme_date_creation, forme_is_ordered,
	forme_date_order, forme_date_expected, forme_date_delivery,
	comments, non_conformity, custom_fields)
VALUES (:id, :machine, :client, :reference, :element, :poses, :date_creation,
	:cliche_code, :cliche_supplier, :cliche_date_creation, :cliche_is_ordered,
	:cliche_date_order, :cliche_date_expected, :cliche_date_delivery,
	:forme_code, :forme_supplier, :forme_date_creation, :forme_is_ordered,
	:forme_date_order, :forme_date_expected, :forme_date_delivery,
	:comments, :non_conformity, :custom_fields)`

func toItemRow(it *model.Item) (itemRow, error) {
	fields := it.CustomFields
	if fields == nil {
		fields = map[string]string{}
	}
	custom, err := json.Marshal(fields)
	if err != nil {
		return itemRow{}, fmt.Errorf("encoding custom fields: %w", err)
	}
	return itemRow{
		ID:                 it.ID,
		Machine:            it.Machine,
		Client:             it.Client,
		Reference:          it.Reference,
		Element:            it.Element,
		Poses:              it.Poses,
		DateCreation:       it.DateCreation,
		ClicheCode:         it.Cliche.Code,
		ClicheSupplier:     it.Cliche.Supplier,
		ClicheDateCreation: it.Cliche.DateCreation,
		ClicheIsOrdered:    it.Cliche.IsOrdered,
		ClicheDateOrder:    it.Cliche.DateOrder,
		ClicheDateExpected: it.Cliche.DateExpected,
		ClicheDateDelivery: it.Cliche.DateDelivery,
		FormeCode:          it.Forme.Code,
		FormeSupplier:      it.Forme.Supplier,
		FormeDateCreation:  it.Forme.DateCreation,
		FormeIsOrdered:     it.Forme.IsOrdered,
		FormeDateOrder:     it.Forme.DateOrder,
		FormeDateExpected:  it.Forme.DateExpected,
		FormeDateDelivery:  it.Forme.DateDelivery,
		Comments:           it.Comments,
		NonConformity:      it.NonConformity,
		CustomFields:       string(custom),
	}, nil
}

func (r itemRow) item() (model.Item, error) {
	it := model.Item{
		ID:           r.ID,
		Machine:      r.Machine,
		Client:       r.Client,
		Reference:    r.Reference,
		Element:      r.Element,
		Poses:        r.Poses,
		DateCreation: r.DateCreation,
		Cliche: model.Asset{
			Code:         r.ClicheCode,
			Supplier:     r.ClicheSupplier,
			DateCreation: r.ClicheDateCreation,
			IsOrdered:    r.ClicheIsOrdered,
			DateOrder:    r.ClicheDateOrder,
			DateExpected: r.ClicheDateExpected,
			DateDelivery: r.ClicheDateDelivery,
		},
		Forme: model.Asset{
			Code:         r.FormeCode,
			Supplier:     r.FormeSupplier,
			DateCreation: r.FormeDateCreation,
			IsOrdered:    r.FormeIsOrdered,
			DateOrder:    r.FormeDateOrder,
			DateExpected: r.FormeDateExpected,
			DateDelivery: r.FormeDateDelivery,
		},
		Comments:      r.Comments,
		NonConformity: r.NonConformity,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.CustomFields), &it.CustomFields); err != nil {
		return model.Item{}, fmt.Errorf("decoding custom fields of item %s: %w", r.ID, err)
	}
	return it, nil
}

func itemsFromRows(rows []itemRow) ([]model.Item, error) {
	items := make([]model.Item, 0, len(rows))
	for _, r := range rows {
		it, err := r.item()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// CreateItem inserts a new item. The item must carry its identifier.
func CreateItem(ctx context.Context, db *sql.DB, it *model.Item) (*model.Item, error) {
	it.Normalize()
	row, err := toItemRow(it)
	if err != nil {
		return nil, err
	}

	if _, err := dbx(db).NamedExecContext(ctx, insertItem, row); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, it.ID)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	var row itemRow
	err := dbx(db).GetContext(ctx, &row,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	it, err := row.item()
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	Machine string
	// Query matches case-insensitively anywhere in the client, reference,
	// codes, element and machine taken together.
	Query string
}

// ListItems returns items newest first.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	var where []string
	var args []any
	if f.Machine != "" {
		where = append(where, "machine = ?")
		args = append(args, f.Machine)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "instr(lower(client || reference || cliche_code || forme_code || element || machine), lower(?)) > 0")
		args = append(args, q)
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	var rows []itemRow
	if err := dbx(db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return itemsFromRows(rows)
}

// UpdateItem overwrites an item's fields, keeping its identifier and
// creation time. It reports whether the item existed.
func UpdateItem(ctx context.Context, db *sql.DB, it *model.Item) (bool, error) {
	it.Normalize()
	row, err := toItemRow(it)
	if err != nil {
		return false, err
	}

	result, err := dbx(db).NamedExecContext(ctx,
		`UPDATE items SET machine = :machine, client = :client, reference = :reference,
			element = :element, poses = :poses, date_creation = :date_creation,
			cliche_code = :cliche_code, cliche_supplier = :cliche_supplier,
			cliche_date_creation = :cliche_date_creation, cliche_is_ordered = :cliche_is_ordered,
			cliche_date_order = :cliche_date_order, cliche_date_expected = :cliche_date_expected,
			cliche_date_delivery = :cliche_date_delivery,
			forme_code = :forme_code, forme_supplier = :forme_supplier,
			forme_date_creation = :forme_date_creation, forme_is_ordered = :forme_is_ordered,
			forme_date_order = :forme_date_order, forme_date_expected = :forme_date_expected,
			forme_date_delivery = :forme_date_delivery,
			comments = :comments, non_conformity = :non_conformity, custom_fields = :custom_fields,
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = :id`, row,
	)
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	return n > 0, nil
}

// DeleteItem removes an item. It reports whether the item existed.
func DeleteItem(ctx context.Context, db *sql.DB, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	return n > 0, nil
}

// ReplaceItems replaces the whole collection in one transaction. ListItems
// afterwards returns the items in the given order.
func ReplaceItems(ctx context.Context, db *sql.DB, items []model.Item) error {
	return insertItems(ctx, db, items, true)
}

// AppendItems adds items ahead of the existing ones in one transaction.
func AppendItems(ctx context.Context, db *sql.DB, items []model.Item) error {
	return insertItems(ctx, db, items, false)
}

func insertItems(ctx context.Context, db *sql.DB, items []model.Item, replace bool) error {
	tx, err := dbx(db).BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return fmt.Errorf("clearing items: %w", err)
		}
	}

	// Newest first means inserting the last item first.
	for _, it := range slices.Backward(items) {
		it.Normalize()
		row, err := toItemRow(&it)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertItem, row); err != nil {
			return fmt.Errorf("inserting item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing items: %w", err)
	}
	return nil
}

// ListCodes returns the distinct non-empty codes of asset type t, sorted,
// optionally narrowed to those containing q.
func ListCodes(ctx context.Context, db *sql.DB, t model.AssetType, q string) ([]string, error) {
	col := codeColumn(t)
	query := `SELECT DISTINCT ` + col + ` FROM items WHERE trim(` + col + `) != ''`
	var args []any
	if q = strings.TrimSpace(q); q != "" {
		query += ` AND instr(lower(` + col + `), lower(?)) > 0`
		args = append(args, q)
	}
	query += ` ORDER BY ` + col

	codes := []string{}
	if err := dbx(db).SelectContext(ctx, &codes, query, args...); err != nil {
		return nil, fmt.Errorf("listing codes: %w", err)
	}
	return codes, nil
}

// MachineForCode returns the machine of the newest item whose code of type
// t equals code, or "" when none does.
func MachineForCode(ctx context.Context, db *sql.DB, t model.AssetType, code string) (string, error) {
	var machine string
	err := db.QueryRowContext(ctx,
		`SELECT machine FROM items WHERE `+codeColumn(t)+` = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		code,
	).Scan(&machine)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("finding machine for code: %w", err)
	}
	return machine, nil
}

func codeColumn(t model.AssetType) string {
	if t == model.AssetForme {
		return "forme_code"
	}
	return "cliche_code"
}
