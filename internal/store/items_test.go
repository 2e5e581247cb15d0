package store

import (
	"context"
	"slices"
	"testing"

	"github.com/atlasherbaltea-design/otg-track-99/internal/db"
	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

func testItem(id, machine, client, cliche, forme string) model.Item {
	return model.Item{
		ID:           id,
		Machine:      machine,
		Client:       client,
		Reference:    "REF-" + id,
		Element:      "Caisse",
		Poses:        2,
		DateCreation: "2025-06-01",
		Cliche:       model.Asset{Code: cliche},
		Forme:        model.Asset{Code: forme},
	}
}

func itemIDs(items []model.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	in := testItem("a", " MACARBOX ", "Danone", "F00001M", "")
	in.Poses = 0
	in.Cliche.IsOrdered = true
	in.Cliche.DateExpected = "2025-06-20"
	in.CustomFields = map[string]string{"color": "blue"}

	item, err := CreateItem(ctx, database, &in)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Machine != "MACARBOX" {
		t.Errorf("expected trimmed machine, got %q", item.Machine)
	}
	if item.Poses != 1 {
		t.Errorf("expected poses clamped to 1, got %d", item.Poses)
	}
	if !item.Cliche.IsOrdered || item.Cliche.DateExpected != "2025-06-20" {
		t.Errorf("cliche asset not persisted: %+v", item.Cliche)
	}
	if item.CustomFields["color"] != "blue" {
		t.Errorf("expected custom field, got %v", item.CustomFields)
	}
	if item.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	missing, err := GetItem(ctx, database, "nope")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing item")
	}
}

func TestListItemsFilter(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, it := range []model.Item{
		testItem("1", "MACARBOX", "Danone", "F00001M", "F00001MR"),
		testItem("2", "DRO", "Lactalis", "F00001D", ""),
		testItem("3", "DRO", "Danone", "", "F00001R"),
	} {
		if _, err := CreateItem(ctx, database, &it); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ItemFilter
		want   []string
	}{
		{"all newest first", ItemFilter{}, []string{"3", "2", "1"}},
		{"machine", ItemFilter{Machine: "DRO"}, []string{"3", "2"}},
		{"query client", ItemFilter{Query: "danone"}, []string{"3", "1"}},
		{"query code", ItemFilter{Query: "f00001d"}, []string{"2"}},
		{"machine and query", ItemFilter{Machine: "DRO", Query: "Danone"}, []string{"3"}},
		{"no match", ItemFilter{Query: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ListItems(ctx, database, tt.filter)
			if err != nil {
				t.Fatalf("ListItems: %v", err)
			}
			if got := itemIDs(items); !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestUpdateItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	in := testItem("u", "DRO", "Client", "F00001D", "")
	CreateItem(ctx, database, &in)

	in.Cliche.DateDelivery = "2025-06-10"
	in.NonConformity = "scratched"
	ok, err := UpdateItem(ctx, database, &in)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if !ok {
		t.Fatal("expected update to find the item")
	}

	got, _ := GetItem(ctx, database, "u")
	if got.Cliche.DateDelivery != "2025-06-10" || got.NonConformity != "scratched" {
		t.Errorf("update not persisted: %+v", got)
	}

	ghost := testItem("ghost", "DRO", "", "", "")
	ok, err = UpdateItem(ctx, database, &ghost)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if ok {
		t.Error("expected update of missing item to report false")
	}
}

func TestDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	in := testItem("d", "DRO", "", "", "")
	CreateItem(ctx, database, &in)

	ok, err := DeleteItem(ctx, database, "d")
	if err != nil || !ok {
		t.Fatalf("DeleteItem: ok=%v err=%v", ok, err)
	}
	ok, err = DeleteItem(ctx, database, "d")
	if err != nil || ok {
		t.Errorf("second DeleteItem: ok=%v err=%v", ok, err)
	}
}

func TestReplaceItemsKeepsOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	old := testItem("old", "DRO", "", "", "")
	CreateItem(ctx, database, &old)

	imported := []model.Item{
		testItem("x", "DRO", "", "F00002D", ""),
		testItem("y", "DRO", "", "F00003D", ""),
		testItem("z", "DRO", "", "F00001D", ""),
	}
	if err := ReplaceItems(ctx, database, imported); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}

	items, _ := ListItems(ctx, database, ItemFilter{})
	if got := itemIDs(items); !slices.Equal(got, []string{"x", "y", "z"}) {
		t.Errorf("expected [x y z], got %v", got)
	}
}

func TestReplaceItemsRollsBackOnError(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	old := testItem("old", "DRO", "", "", "")
	CreateItem(ctx, database, &old)

	dup := []model.Item{testItem("same", "DRO", "", "", ""), testItem("same", "DRO", "", "", "")}
	if err := ReplaceItems(ctx, database, dup); err == nil {
		t.Fatal("expected error for duplicate ids")
	}

	items, _ := ListItems(ctx, database, ItemFilter{})
	if got := itemIDs(items); !slices.Equal(got, []string{"old"}) {
		t.Errorf("expected previous collection kept, got %v", got)
	}
}

func TestAppendItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	old := testItem("old", "DRO", "", "", "")
	CreateItem(ctx, database, &old)

	if err := AppendItems(ctx, database, []model.Item{testItem("n1", "DRO", "", "", ""), testItem("n2", "DRO", "", "", "")}); err != nil {
		t.Fatalf("AppendItems: %v", err)
	}

	items, _ := ListItems(ctx, database, ItemFilter{})
	if got := itemIDs(items); !slices.Equal(got, []string{"n1", "n2", "old"}) {
		t.Errorf("expected [n1 n2 old], got %v", got)
	}
}

func TestListCodes(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, it := range []model.Item{
		testItem("1", "MACARBOX", "", "F00002M", "F00001MR"),
		testItem("2", "MACARBOX", "", "F00001M", ""),
		testItem("3", "DRO", "", "F00001M", "F00001R"),
	} {
		CreateItem(ctx, database, &it)
	}

	codes, err := ListCodes(ctx, database, model.AssetCliche, "")
	if err != nil {
		t.Fatalf("ListCodes: %v", err)
	}
	if !slices.Equal(codes, []string{"F00001M", "F00002M"}) {
		t.Errorf("unexpected cliche codes %v", codes)
	}

	codes, _ = ListCodes(ctx, database, model.AssetForme, "mr")
	if !slices.Equal(codes, []string{"F00001MR"}) {
		t.Errorf("unexpected forme codes %v", codes)
	}

	codes, _ = ListCodes(ctx, database, model.AssetForme, "nothing")
	if codes == nil || len(codes) != 0 {
		t.Errorf("expected empty non-nil list, got %v", codes)
	}
}

func TestMachineForCode(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	in := testItem("1", "ASAHI CELMACH", "", "F00004AC", "F00002P")
	CreateItem(ctx, database, &in)

	machine, err := MachineForCode(ctx, database, model.AssetForme, "F00002P")
	if err != nil {
		t.Fatalf("MachineForCode: %v", err)
	}
	if machine != "ASAHI CELMACH" {
		t.Errorf("expected 'ASAHI CELMACH', got %q", machine)
	}

	machine, _ = MachineForCode(ctx, database, model.AssetCliche, "F00002P")
	if machine != "" {
		t.Errorf("expected no machine for code of the other type, got %q", machine)
	}
}
