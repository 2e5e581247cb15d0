package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"  ", "", false},
		{"2025-01-05", "2025-01-05", false},
		{"05/01/2025", "2025-01-05", false},
		{"5/1/2025", "2025-01-05", false},
		{"2025-01-05 00:00:00", "2025-01-05", false},
		{"45662", "2025-01-05", false},
		{"45662.5", "2025-01-05", false},
		{"2025-13-01", "", true},
		{"31/02/2025", "", true},
		{"demain", "", true},
		{"-3", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParsePoses(t *testing.T) {
	assert.Equal(t, 4, parsePoses("4"))
	assert.Equal(t, 2, parsePoses("2.0"))
	assert.Equal(t, 1, parsePoses("0"))
	assert.Equal(t, 1, parsePoses("-2"))
	assert.Equal(t, 1, parsePoses("deux"))
	assert.Equal(t, 1, parsePoses(""))
}

func TestReadCSVDelimiters(t *testing.T) {
	semi, err := ReadCSV(strings.NewReader("Client;Poses\nACME, Inc;2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Client", "Poses"}, semi.Header)
	assert.Equal(t, [][]string{{"ACME, Inc", "2"}}, semi.Rows)

	comma, err := ReadCSV(strings.NewReader("Client,Poses\r\n\"ACME; Inc\",2\r\n,\r\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ACME; Inc", "2"}}, comma.Rows)
}

func TestReadCSVEncodings(t *testing.T) {
	bom, err := ReadCSV(bytes.NewReader(append([]byte{0xEF, 0xBB, 0xBF}, []byte("Référence;Client\nR1;X\n")...)))
	require.NoError(t, err)
	assert.Equal(t, "Référence", bom.Header[0])

	// "Référence" in Windows-1252.
	legacy := []byte("R\xe9f\xe9rence;Client\nR1;X\n")
	cp, err := ReadCSV(bytes.NewReader(legacy))
	require.NoError(t, err)
	assert.Equal(t, "Référence", cp.Header[0])
}

func TestReadEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ReadCSV(strings.NewReader("Client;Poses\n;\n"))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ParseItems(&Table{Header: []string{"Client"}}, ItemOptions{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func sampleItems() []model.Item {
	return []model.Item{
		{
			Element: "Étui 250g", Client: "ACME", Reference: "R-1", Machine: "MACARBOX", Poses: 4,
			DateCreation: "2025-01-02",
			Cliche: model.Asset{
				Code: "F00001M", Supplier: "LTE", DateCreation: "2025-01-02",
				IsOrdered: true, DateOrder: "2025-01-03", DateExpected: "2025-01-10", DateDelivery: "2025-01-09",
			},
			Forme: model.Asset{
				Code: "F00001MR", Supplier: "CHIMO", DateCreation: "2025-01-02",
				IsOrdered: true, DateOrder: "2025-01-03", DateExpected: "2020-01-10",
			},
			Comments:      "urgent; client \"VIP\"",
			NonConformity: "bavure",
			CustomFields:  map[string]string{"ink": "Pantone 286"},
		},
		{
			Element: "Notice", Client: "BETA", Machine: "DRO", Poses: 1,
			DateCreation: "2025-02-01",
			Cliche:       model.Asset{Code: "F00001D", DateCreation: "2025-02-01"},
			Forme:        model.Asset{DateCreation: "2025-02-01"},
			CustomFields: map[string]string{},
		},
	}
}

var inkField = []model.CustomFieldDefinition{{ID: "ink", Label: "Encre", Type: model.CustomFieldText}}

func TestItemsTable(t *testing.T) {
	table := ItemsTable(sampleItems(), inkField, "2025-06-01")

	require.Len(t, table.Header, len(itemColumns)+1)
	assert.Equal(t, "Encre", table.Header[len(table.Header)-1])
	require.Len(t, table.Rows, 2)

	r := newRows(table)
	assert.Equal(t, "OUI", r.cell(0, ColClicheOrdered))
	assert.Equal(t, "En Retard", r.cell(0, ColStatus))
	assert.Equal(t, "Non Commandé", r.cell(1, ColStatus))
	assert.Equal(t, "NON", r.cell(1, ColFormeOrdered))
	assert.Equal(t, "Pantone 286", r.cell(0, "Encre"))
}

func TestItemsRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, format, ProductionSheet, ItemsTable(sampleItems(), inkField, "2025-06-01")))

			table, err := Decode(buf.Bytes())
			require.NoError(t, err)

			got, err := ParseItems(table, ItemOptions{CustomFields: inkField, NewID: sequentialIDs()})
			require.NoError(t, err)

			want := sampleItems()
			want[0].ID, want[1].ID = "id-1", "id-2"
			assert.Equal(t, want, got)
		})
	}
}

func TestParseItemsDefaults(t *testing.T) {
	table := &Table{
		Header: []string{"element", "Cliché", "Poses", "Date Création", "Cliché Commandé"},
		Rows:   [][]string{{" Boîte ", "C-1", "abc", "45662", "oui"}},
	}

	got, err := ParseItems(table, ItemOptions{DefaultMachine: "MACARBOX"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	it := got[0]
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, "Boîte", it.Element)
	assert.Equal(t, "MACARBOX", it.Machine)
	assert.Equal(t, 1, it.Poses)
	assert.Equal(t, "2025-01-05", it.DateCreation)
	assert.Equal(t, "2025-01-05", it.Cliche.DateCreation)
	assert.Equal(t, "2025-01-05", it.Forme.DateCreation)
	assert.True(t, it.Cliche.IsOrdered)
	assert.False(t, it.Forme.IsOrdered)
}

func TestParseItemsDropsUnneededSupplier(t *testing.T) {
	table := &Table{
		Header: []string{ColElement, "Cliché", ColClicheSupplier, ColFormeSupplier},
		Rows:   [][]string{{"Boîte", "C-1", "LTE", "CHIMO"}},
	}

	got, err := ParseItems(table, ItemOptions{DefaultMachine: "DRO"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "LTE", got[0].Cliche.Supplier)
	assert.Empty(t, got[0].Forme.Supplier)
}

func TestParseItemsRowErrors(t *testing.T) {
	table := &Table{
		Header: []string{ColElement, ColDateCreation, ColClicheExpected, "Quantité"},
		Rows: [][]string{
			{"ok", "2025-01-01", "", "3"},
			{"bad", "hier", "2025-99-01", "x"},
			{"bad too", "", "", "4,5"},
		},
	}
	qty := []model.CustomFieldDefinition{{ID: "qty", Label: "Quantité", Type: model.CustomFieldNumber}}

	items, err := ParseItems(table, ItemOptions{CustomFields: qty})
	assert.Nil(t, items)

	var ie *ImportError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []RowError{
		{Row: 3, Column: ColDateCreation, Message: `invalid date "hier"`},
		{Row: 3, Column: ColClicheExpected, Message: `invalid date "2025-99-01"`},
		{Row: 3, Column: "Quantité", Message: "not a number"},
	}, ie.Errors)
	assert.Contains(t, err.Error(), "3 invalid rows")
}

func sampleRepairs() []model.Repair {
	return []model.Repair{
		{
			Type: model.AssetForme, LinkedCode: "F00001MR", Operator: "HILALI", Machine: "MACARBOX",
			Condition: model.ConditionDamagedNew, Kind: model.RepairExternal, Supplier: "LTE",
			DeclarationDate: "2025-03-01", RepairDate: "2025-03-04",
			ProblemDescription: "lame cassée", CorrectiveAction: "remplacement", Status: model.RepairClosed,
		},
		{
			Type: model.AssetCliche, LinkedCode: "F00002M", Operator: "REDA", Machine: "DRO",
			Condition: model.ConditionDesign, Kind: model.RepairInternal,
			DeclarationDate: "2025-03-02", ProblemDescription: "texte flou", Status: model.RepairOpen,
		},
	}
}

func TestRepairsRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, format, RepairsSheet, RepairsTable(sampleRepairs())))

			table, err := Decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, "OUVERT", newRows(table).cell(1, ColRepairStatus))

			got, err := ParseRepairs(table, RepairOptions{NewID: sequentialIDs()})
			require.NoError(t, err)

			want := sampleRepairs()
			want[0].ID, want[1].ID = "id-1", "id-2"
			assert.Equal(t, want, got)
		})
	}
}

func TestParseRepairsDefaultsAndErrors(t *testing.T) {
	table := &Table{
		Header: []string{ColToolType, ColToolCode, ColOperator, ColRepairMachine, ColCondition, ColKind, ColSupplier, ColRepairStatus},
		Rows: [][]string{
			{"", "C-1", "", "", "", "", "", ""},
		},
	}
	got, err := ParseRepairs(table, RepairOptions{DefaultMachine: "DRO"})
	require.NoError(t, err)
	assert.Equal(t, UnknownOperator, got[0].Operator)
	assert.Equal(t, "DRO", got[0].Machine)
	assert.Equal(t, model.AssetCliche, got[0].Type)
	assert.Equal(t, model.ConditionRepair, got[0].Condition)
	assert.Equal(t, model.RepairOpen, got[0].Status)

	table.Rows = [][]string{
		{"B – FORME", "F1", "ADIL", "DRO", "Cassé", "Réparation INT", "", "OUVERT"},
		{"B – FORME", "", "ADIL", "DRO", "Réparation", "Réparation EXT", "", "clôturé"},
	}
	_, err = ParseRepairs(table, RepairOptions{})
	var ie *ImportError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []RowError{
		{Row: 2, Column: ColCondition, Message: "unknown condition"},
		{Row: 3, Message: "linked_code required"},
		{Row: 3, Message: "supplier required for external repairs"},
	}, ie.Errors)
}

func TestPrependRepairs(t *testing.T) {
	existing := make([]model.Repair, MaxRepairs)
	for i := range existing {
		existing[i].ID = fmt.Sprintf("old-%d", i)
	}
	imported := []model.Repair{{ID: "new-1"}, {ID: "new-2"}}

	got := PrependRepairs(imported, existing)
	require.Len(t, got, MaxRepairs)
	assert.Equal(t, "new-1", got[0].ID)
	assert.Equal(t, "new-2", got[1].ID)
	assert.Equal(t, fmt.Sprintf("old-%d", MaxRepairs-3), got[MaxRepairs-1].ID)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("ods")
	assert.Error(t, err)
}
