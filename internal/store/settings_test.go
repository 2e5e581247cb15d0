package store

import (
	"context"
	"testing"

	"github.com/atlasherbaltea-design/otg-track-99/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	v, err := GetSetting(ctx, database, "last_insight")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value for unset key, got %q", v)
	}

	if err := SetSetting(ctx, database, "last_insight", "old"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := SetSetting(ctx, database, "last_insight", "new"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}

	v, _ = GetSetting(ctx, database, "last_insight")
	if v != "new" {
		t.Errorf("expected 'en', got %q", v)
	}
}
