package storage

import (
	"context"
	"path/filepath"
	"testing"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/devices"
	"meridianrx/galen/pkg/formulary"
)

func testMedication() *formulary.Medication {
	return &formulary.Medication{
		ID:   "metformin-500-tab",
		Name: "Metformin 500 mg tablet",
		Form: "tablet",
		Ingredients: []dosing.IngredientStrength{
			{
				Name:             "metformin hydrochloride",
				StrengthQuantity: &dosing.Quantity{Value: 500, Unit: "mg"},
			},
		},
		DeviceUnits: []devices.Unit{
			{ID: "{tablet}", Display: "tablet", PluralDisplay: "tablets", RatioTo: "mg", Factor: devices.RequiresContext()},
		},
		Lots: map[string]formulary.Lot{
			"LOT-2026-04": {DeviceFactors: map[string]float64{"{tablet}": 498.5}, Note: "assay calibration"},
		},
	}
}

// runStoreSuite exercises the formulary.Store contract against any
// implementation.
func runStoreSuite(t *testing.T, store formulary.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		med := testMedication()
		if err := store.Put(ctx, med); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		loaded, err := store.Get(ctx, med.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if loaded == nil {
			t.Fatal("expected medication, got nil")
		}
		if loaded.Name != med.Name || loaded.Form != med.Form {
			t.Errorf("round-trip changed fields: %+v", loaded)
		}
		if len(loaded.Ingredients) != 1 || loaded.Ingredients[0].StrengthQuantity.Value != 500 {
			t.Errorf("round-trip lost ingredient strength: %+v", loaded.Ingredients)
		}
		if len(loaded.DeviceUnits) != 1 || loaded.DeviceUnits[0].ID != "{tablet}" {
			t.Errorf("round-trip lost device units: %+v", loaded.DeviceUnits)
		}
		if !loaded.DeviceUnits[0].Factor.NeedsContext() {
			t.Error("round-trip should preserve a context-required factor")
		}
		if loaded.Lots["LOT-2026-04"].DeviceFactors["{tablet}"] != 498.5 {
			t.Errorf("round-trip lost lot calibration: %+v", loaded.Lots)
		}
		if loaded.UpdatedAt.IsZero() {
			t.Error("Put should stamp UpdatedAt")
		}
	})

	t.Run("known factor survives round-trip", func(t *testing.T) {
		med := testMedication()
		med.ID = "testosterone-gel"
		med.DeviceUnits = []devices.Unit{
			{ID: "{click}", RatioTo: "mL", Factor: devices.KnownFactor(0.25)},
		}
		if err := store.Put(ctx, med); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		loaded, err := store.Get(ctx, med.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		f, known := loaded.DeviceUnits[0].Factor.Known()
		if !known || f != 0.25 {
			t.Errorf("known factor lost in round-trip: known=%v f=%v", known, f)
		}
	})

	t.Run("get nonexistent returns nil", func(t *testing.T) {
		loaded, err := store.Get(ctx, "no-such-med")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if loaded != nil {
			t.Errorf("expected nil, got %+v", loaded)
		}
	})

	t.Run("put replaces existing entry", func(t *testing.T) {
		med := testMedication()
		med.Name = "Metformin 500 mg tablet (revised)"
		if err := store.Put(ctx, med); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		loaded, err := store.Get(ctx, med.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if loaded.Name != "Metformin 500 mg tablet (revised)" {
			t.Errorf("Put should replace, got %q", loaded.Name)
		}
	})

	t.Run("list is sorted by id", func(t *testing.T) {
		meds, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(meds) != 2 {
			t.Fatalf("expected 2 medications, got %d", len(meds))
		}
		if meds[0].ID != "metformin-500-tab" || meds[1].ID != "testosterone-gel" {
			t.Errorf("list out of order: %s, %s", meds[0].ID, meds[1].ID)
		}
	})

	t.Run("delete removes entry", func(t *testing.T) {
		if err := store.Delete(ctx, "testosterone-gel"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		loaded, err := store.Get(ctx, "testosterone-gel")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if loaded != nil {
			t.Error("entry should be gone after Delete")
		}
		// Deleting again is a no-op.
		if err := store.Delete(ctx, "testosterone-gel"); err != nil {
			t.Errorf("repeat Delete should not fail: %v", err)
		}
	})

	t.Run("put rejects invalid medication", func(t *testing.T) {
		if err := store.Put(ctx, &formulary.Medication{Name: "no id"}); err == nil {
			t.Error("expected validation error for missing ID")
		}
		if err := store.Put(ctx, &formulary.Medication{ID: "x"}); err == nil {
			t.Error("expected validation error for missing name")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	runStoreSuite(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "formulary.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()
	runStoreSuite(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "formulary.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Put(ctx, testMedication()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Get(ctx, "metformin-500-tab")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("medication should survive a reopen")
	}
}

func TestSQLiteStoreCloseIdempotent(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "formulary.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, testMedication()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	first, err := store.Get(ctx, "metformin-500-tab")
	if err != nil {
		t.Fatal(err)
	}
	first.Name = "mutated"

	second, err := store.Get(ctx, "metformin-500-tab")
	if err != nil {
		t.Fatal(err)
	}
	if second.Name == "mutated" {
		t.Error("Get should return copies, not shared pointers")
	}
}
