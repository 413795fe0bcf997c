package formulary

import (
	"testing"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/devices"
)

func TestMedicationValidate(t *testing.T) {
	valid := func() *Medication {
		return &Medication{
			ID:   "amoxicillin-250-5",
			Name: "Amoxicillin 250 mg/5 mL suspension",
			Form: "solution",
			Ingredients: []dosing.IngredientStrength{
				{Name: "amoxicillin", StrengthRatio: &dosing.StrengthRatio{
					Numerator:   dosing.Quantity{Value: 250, Unit: "mg"},
					Denominator: dosing.Quantity{Value: 5, Unit: "mL"},
				}},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Medication)
		wantErr bool
	}{
		{"valid", func(m *Medication) {}, false},
		{"missing id", func(m *Medication) { m.ID = "" }, true},
		{"missing name", func(m *Medication) { m.Name = "" }, true},
		{"ingredient without name", func(m *Medication) {
			m.Ingredients = append(m.Ingredients, dosing.IngredientStrength{
				StrengthQuantity: &dosing.Quantity{Value: 1, Unit: "mg"},
			})
		}, true},
		{"ingredient without strength", func(m *Medication) {
			m.Ingredients = append(m.Ingredients, dosing.IngredientStrength{Name: "filler"})
		}, true},
		{"non-positive lot factor", func(m *Medication) {
			m.Lots = map[string]Lot{"L1": {DeviceFactors: map[string]float64{"{click}": 0}}}
		}, true},
		{"no ingredients is fine", func(m *Medication) { m.Ingredients = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	var nilMed *Medication
	if err := nilMed.Validate(); err == nil {
		t.Error("nil medication should fail validation")
	}
}

func TestMedicationStrength(t *testing.T) {
	med := &Medication{
		ID:   "metformin-500-tab",
		Name: "Metformin 500 mg tablet",
		Ingredients: []dosing.IngredientStrength{
			{Name: "metformin hydrochloride", StrengthQuantity: &dosing.Quantity{Value: 500, Unit: "mg"}},
		},
	}

	strength := med.Strength()
	if strength == nil {
		t.Fatal("expected strength data")
	}
	if strength.Name != med.Name {
		t.Errorf("strength should carry the display name, got %q", strength.Name)
	}
	if len(strength.Ingredients) != 1 {
		t.Fatalf("expected 1 ingredient, got %d", len(strength.Ingredients))
	}

	if (&Medication{ID: "x", Name: "X"}).Strength() != nil {
		t.Error("medication without ingredients should have nil strength")
	}
}

func TestDeviceUnitsMergesLotCalibration(t *testing.T) {
	med := &Medication{
		ID:   "testosterone-gel",
		Name: "Testosterone 1% gel pump",
		DeviceUnits: []devices.Unit{
			{
				ID:         "{click}",
				RatioTo:    "mL",
				Factor:     devices.KnownFactor(0.25),
				LotFactors: map[string]float64{"OLD-LOT": 0.24},
			},
			{ID: "{pump}", RatioTo: "mL", Factor: devices.KnownFactor(1.25)},
		},
		Lots: map[string]Lot{
			"LOT-A": {DeviceFactors: map[string]float64{"{click}": 0.26}},
			"LOT-B": {DeviceFactors: map[string]float64{"{pump}": 1.20}},
		},
	}

	units := DeviceUnits(med)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}

	click := units[0]
	if click.LotFactors["OLD-LOT"] != 0.24 {
		t.Error("existing lot factors should survive the merge")
	}
	if click.LotFactors["LOT-A"] != 0.26 {
		t.Error("medication lot calibration should fold into the unit")
	}
	if _, ok := click.LotFactors["LOT-B"]; ok {
		t.Error("calibration for other units should not leak in")
	}

	pump := units[1]
	if pump.LotFactors["LOT-B"] != 1.20 {
		t.Error("pump should pick up its lot calibration")
	}

	// The source medication must not be mutated.
	if med.DeviceUnits[0].LotFactors["LOT-A"] != 0 {
		t.Error("DeviceUnits must not modify the medication")
	}

	if DeviceUnits(nil) != nil {
		t.Error("nil medication should yield nil units")
	}
}
