package model

import "testing"

func TestItemNormalize(t *testing.T) {
	item := Item{
		Poses:   0,
		Machine: "  DRO ",
		Cliche:  Asset{Code: " F00001D  ", DateDelivery: " 2025-01-05"},
		Forme:   Asset{Code: "   "},
	}
	item.Normalize()

	if item.Poses != 1 {
		t.Errorf("expected poses clamped to 1, got %d", item.Poses)
	}
	if item.Machine != "DRO" {
		t.Errorf("expected trimmed machine, got %q", item.Machine)
	}
	if item.Cliche.Code != "F00001D" {
		t.Errorf("expected trimmed cliché code, got %q", item.Cliche.Code)
	}
	if item.Cliche.DateDelivery != "2025-01-05" {
		t.Errorf("expected trimmed delivery date, got %q", item.Cliche.DateDelivery)
	}
	if item.Forme.Needed() {
		t.Error("blank forme code should not be needed")
	}

	item.Poses = -4
	item.Normalize()
	if item.Poses != 1 {
		t.Errorf("expected negative poses clamped to 1, got %d", item.Poses)
	}

	item.Poses = 6
	item.Normalize()
	if item.Poses != 6 {
		t.Errorf("expected poses kept at 6, got %d", item.Poses)
	}
}

func TestAssetNeeded(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"", false},
		{"  ", false},
		{"\t", false},
		{"C-24-998", true},
	}

	for _, tt := range tests {
		if got := (Asset{Code: tt.code}).Needed(); got != tt.want {
			t.Errorf("Asset{Code: %q}.Needed() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestValidDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"2025-01-05", true},
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"05/01/2025", false},
		{"2025-1-5", false},
		{"tomorrow", false},
	}

	for _, tt := range tests {
		if got := ValidDate(tt.in); got != tt.want {
			t.Errorf("ValidDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDropUnneededSuppliers(t *testing.T) {
	item := Item{
		Cliche: Asset{Code: "F00001D", Supplier: "LTE"},
		Forme:  Asset{Code: "  ", Supplier: "CHIMO"},
	}
	item.DropUnneededSuppliers()

	if item.Cliche.Supplier != "LTE" {
		t.Errorf("needed asset lost its supplier: %q", item.Cliche.Supplier)
	}
	if item.Forme.Supplier != "" {
		t.Errorf("expected forme supplier cleared, got %q", item.Forme.Supplier)
	}
}
