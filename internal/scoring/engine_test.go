package scoring

import (
	"math"
	"testing"

	"github.com/nuance-app/nuance/internal/core"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

// fullDay builds a strong day against the default catalog: sleep in the
// credit band, solid training, every dashboard toggle on.
func fullDay() *core.DayInput {
	return &core.DayInput{
		Date:    "2024-03-01",
		Mode:    core.ModeHigh,
		Alcohol: core.LevelNone,
		Stress:  core.LevelNone,
		Sliders: map[core.ItemID]float64{
			core.ItemSleep:      7,
			core.ItemFasting:    16,
			core.ItemResistance: 20,
			core.ItemVest:       20,
		},
		Toggles: map[core.ItemID]bool{
			core.ItemCardio: true, "steps": true, "protein": true, "omega3": true,
			"lowCarb": true, "suppStack": true, "deepWork": true, "fiber": true,
			"sunlight": true, "stretching": true,
		},
		Penalties: map[core.ItemID]bool{},
	}
}

// =============================================================================
// Completion
// =============================================================================

func TestCompletion_LinearSlider(t *testing.T) {
	item := core.Item{
		Kind:   core.KindSlider,
		Slider: &core.SliderSpec{Min: 10, Max: 20, Curve: core.CurveLinear},
	}

	cases := []struct {
		value float64
		want  float64
	}{
		{10, 0},
		{15, 0.5},
		{20, 1},
		{5, 0},   // below range clamps
		{25, 1},  // above range clamps
		{-50, 0}, // far out of range
	}
	for _, tc := range cases {
		if got := Completion(item, tc.value); !almostEqual(got, tc.want) {
			t.Errorf("Completion(%v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestCompletion_CreditCurve(t *testing.T) {
	item := core.Item{
		Kind:   core.KindSlider,
		Slider: &core.SliderSpec{Min: 0, Max: 7, Curve: core.CurveCredit, CreditMin: 5, CreditMax: 7},
	}

	cases := []struct {
		value float64
		want  float64
	}{
		{0, 0},
		{4.9, 0}, // below the credit band earns nothing
		{5, 0},
		{6, 0.5},
		{7, 1},
		{9, 1}, // above the band clamps
	}
	for _, tc := range cases {
		if got := Completion(item, tc.value); !almostEqual(got, tc.want) {
			t.Errorf("Completion(%v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestCompletion_DegenerateRange(t *testing.T) {
	item := core.Item{
		Kind:   core.KindSlider,
		Slider: &core.SliderSpec{Min: 5, Max: 5, Curve: core.CurveLinear},
	}
	if got := Completion(item, 5); got != 0 {
		t.Errorf("degenerate range Completion = %v, want 0", got)
	}

	credit := core.Item{
		Kind:   core.KindSlider,
		Slider: &core.SliderSpec{Min: 0, Max: 7, Curve: core.CurveCredit, CreditMin: 5, CreditMax: 5},
	}
	if got := Completion(credit, 6); got != 0 {
		t.Errorf("degenerate credit band Completion = %v, want 0", got)
	}
}

func TestCompletion_MissingSpec(t *testing.T) {
	item := core.Item{Kind: core.KindSlider}
	if got := Completion(item, 5); got != 0 {
		t.Errorf("nil spec Completion = %v, want 0", got)
	}
}

// =============================================================================
// Score
// =============================================================================

func TestScore_Deterministic(t *testing.T) {
	cat := core.DefaultCatalog()
	in := fullDay()

	first := Score(cat, in, Settings{})
	second := Score(cat, in, Settings{})
	if first != second {
		t.Errorf("Score not deterministic: %+v vs %+v", first, second)
	}
}

func TestScore_StrongDayIsHighOutput(t *testing.T) {
	cat := core.DefaultCatalog()
	res := Score(cat, fullDay(), Settings{})

	if res.Score < 80 {
		t.Errorf("strong day score = %v, want >= 80", res.Score)
	}
	if res.Status != core.StatusHighOutput {
		t.Errorf("status = %v, want %v", res.Status, core.StatusHighOutput)
	}
	if !almostEqual(res.PenaltyProduct, 1.0) {
		t.Errorf("penalty product = %v, want 1.0", res.PenaltyProduct)
	}
}

func TestScore_LowSleepFloor(t *testing.T) {
	cat := core.DefaultCatalog()

	// 4.5h and 3h both earn zero credit-band completion, so the base is
	// identical and only the floor separates the two scores.
	at45 := fullDay()
	at45.Sliders[core.ItemSleep] = 4.5
	at3 := fullDay()
	at3.Sliders[core.ItemSleep] = 3

	res45 := Score(cat, at45, Settings{})
	res3 := Score(cat, at3, Settings{})

	if !almostEqual(res45.BaseScore, res3.BaseScore) {
		t.Fatalf("base scores differ: %v vs %v", res45.BaseScore, res3.BaseScore)
	}
	if !almostEqual(res3.PenaltyProduct, res45.PenaltyProduct*0.80) {
		t.Errorf("penalty product = %v, want %v", res3.PenaltyProduct, res45.PenaltyProduct*0.80)
	}
	if !almostEqual(res3.Score, res45.Score*0.80) {
		t.Errorf("score = %v, want %v", res3.Score, res45.Score*0.80)
	}
}

func TestScore_AlcoholHighForcesDrift(t *testing.T) {
	cat := core.DefaultCatalog()
	in := fullDay()
	in.Alcohol = core.LevelHigh

	res := Score(cat, in, Settings{})
	if res.Status != core.StatusDrift {
		t.Errorf("status = %v, want %v", res.Status, core.StatusDrift)
	}
}

func TestScore_BingeTriggerRespectsToggle(t *testing.T) {
	cat := core.DefaultCatalog()
	in := fullDay()
	in.Penalties[core.ItemBinge] = true

	res := Score(cat, in, Settings{})
	if res.Status != core.StatusDrift {
		t.Fatalf("binge status = %v, want DRIFT", res.Status)
	}
	if res.Score < 55 {
		t.Fatalf("score %v fell below the floor, trigger test is moot", res.Score)
	}

	// With triggers disabled the same day classifies by score alone.
	res = Score(cat, in, Settings{DisableDriftTriggers: true})
	if res.Status == core.StatusDrift {
		t.Errorf("triggers disabled but still DRIFT at score %v", res.Score)
	}
}

func TestScore_FloorDriftIgnoresTriggerToggle(t *testing.T) {
	cat := core.DefaultCatalog()
	in := &core.DayInput{
		Date: "2024-03-01", Mode: core.ModeLow,
		Alcohol: core.LevelNone, Stress: core.LevelNone,
		Sliders:   map[core.ItemID]float64{core.ItemSleep: 7},
		Toggles:   map[core.ItemID]bool{},
		Penalties: map[core.ItemID]bool{},
	}

	res := Score(cat, in, Settings{DisableDriftTriggers: true})
	if res.Score >= 55 {
		t.Fatalf("empty day score = %v, want < 55", res.Score)
	}
	if res.Status != core.StatusDrift {
		t.Errorf("status = %v, want DRIFT below the floor in every mode", res.Status)
	}
}

func TestScore_PenaltiesMultiply(t *testing.T) {
	cat := core.DefaultCatalog()
	in := fullDay()
	in.Penalties["ultra"] = true   // 0.80
	in.Penalties["grazing"] = true // 0.85

	res := Score(cat, in, Settings{})
	want := 0.80 * 0.85
	if !almostEqual(res.PenaltyProduct, want) {
		t.Errorf("penalty product = %v, want %v", res.PenaltyProduct, want)
	}
}

func TestScore_ZeroWeightCatalog(t *testing.T) {
	cat := &core.Catalog{}
	in := &core.DayInput{
		Date: "2024-03-01", Mode: core.ModeHigh,
		Alcohol: core.LevelNone, Stress: core.LevelNone,
		Sliders:   map[core.ItemID]float64{core.ItemSleep: 7},
		Toggles:   map[core.ItemID]bool{},
		Penalties: map[core.ItemID]bool{},
	}

	res := Score(cat, in, Settings{})
	if res.BaseScore != 0 || res.Score != 0 {
		t.Errorf("empty catalog score = %+v, want zeros", res)
	}
	if res.Status != core.StatusDrift {
		t.Errorf("status = %v, want DRIFT", res.Status)
	}
}

// modeCatalog gives full control over the score: one toggle at weight 100,
// one penalty whose multiplier lands the score exactly where a case needs it.
func modeCatalog(mult float64) *core.Catalog {
	return &core.Catalog{
		Toggles: []Item{
			{ID: "only", Name: "Only", Kind: core.KindToggle, PerfWeight: 100,
				Impact: core.ImpactPerformance, OnDashboard: true, Order: 1},
		},
		Penalties: []Item{
			{ID: "dial", Name: "Dial", Kind: core.KindPenalty, Multiplier: mult,
				Impact: core.ImpactPerformance, OnDashboard: true, Order: 1},
		},
	}
}

type Item = core.Item

func TestScore_ModeThresholds(t *testing.T) {
	cases := []struct {
		mode core.Mode
		mult float64 // score = 100 * mult
		want core.Status
	}{
		{core.ModeHigh, 1.00, core.StatusHighOutput},
		{core.ModeHigh, 0.80, core.StatusHighOutput},
		{core.ModeHigh, 0.79, core.StatusOnTrack},
		{core.ModeHigh, 0.65, core.StatusOnTrack},
		{core.ModeHigh, 0.64, core.StatusHold},
		{core.ModeMedium, 0.75, core.StatusSolid},
		{core.ModeMedium, 0.74, core.StatusOnTrack},
		{core.ModeMedium, 0.60, core.StatusOnTrack},
		{core.ModeMedium, 0.59, core.StatusHold},
		{core.ModeLow, 0.70, core.StatusRecoveryReady},
		{core.ModeLow, 0.69, core.StatusMaintenance},
		{core.ModeLow, 0.55, core.StatusMaintenance},
		{core.ModeLow, 0.54, core.StatusDrift}, // floor wins over mode
		{core.ModeHigh, 0.54, core.StatusDrift},
		{core.ModeMedium, 0.54, core.StatusDrift},
	}

	for _, tc := range cases {
		cat := modeCatalog(tc.mult)
		in := &core.DayInput{
			Date: "2024-03-01", Mode: tc.mode,
			Alcohol: core.LevelNone, Stress: core.LevelNone,
			Sliders:   map[core.ItemID]float64{core.ItemSleep: 7},
			Toggles:   map[core.ItemID]bool{"only": true},
			Penalties: map[core.ItemID]bool{"dial": true},
		}
		res := Score(cat, in, Settings{})
		if res.Status != tc.want {
			t.Errorf("mode %s score %.0f: status = %v, want %v",
				tc.mode, res.Score, res.Status, tc.want)
		}
	}
}

// =============================================================================
// Recovery
// =============================================================================

func recoveryCatalog() *core.Catalog {
	return &core.Catalog{
		Toggles: []Item{
			{ID: "rest", Name: "Rest", Kind: core.KindToggle,
				RecoveryWeight: 60, Impact: core.ImpactBoth, RecoveryRole: core.RoleCredit,
				OnDashboard: true, Order: 1},
			{ID: "strain", Name: "Strain", Kind: core.KindToggle,
				RecoveryWeight: 40, Impact: core.ImpactBoth, RecoveryRole: core.RoleLoad,
				OnDashboard: true, Order: 2},
		},
	}
}

func recoveryDay() *core.DayInput {
	return &core.DayInput{
		Date: "2024-03-01", Mode: core.ModeHigh,
		Alcohol: core.LevelNone, Stress: core.LevelNone,
		Sliders:   map[core.ItemID]float64{core.ItemSleep: 7},
		Toggles:   map[core.ItemID]bool{"rest": true},
		Penalties: map[core.ItemID]bool{},
	}
}

func TestScore_RecoveryCreditMinusLoad(t *testing.T) {
	cat := recoveryCatalog()

	in := recoveryDay()
	res := Score(cat, in, Settings{})
	if !almostEqual(res.BaseRecovery, 60) {
		t.Errorf("credit only: base recovery = %v, want 60", res.BaseRecovery)
	}

	in.Toggles["strain"] = true
	res = Score(cat, in, Settings{})
	if !almostEqual(res.BaseRecovery, 20) {
		t.Errorf("credit minus load: base recovery = %v, want 20", res.BaseRecovery)
	}

	in.Toggles["rest"] = false
	res = Score(cat, in, Settings{})
	if !almostEqual(res.BaseRecovery, 0) {
		t.Errorf("load only: base recovery = %v, want clamp to 0", res.BaseRecovery)
	}
}

func TestScore_RecoveryWeightsRenormalize(t *testing.T) {
	// Same shape at a different scale must produce the same recovery.
	cat := recoveryCatalog()
	scaled := recoveryCatalog()
	scaled.Toggles[0].RecoveryWeight = 6
	scaled.Toggles[1].RecoveryWeight = 4

	in := recoveryDay()
	a := Score(cat, in, Settings{})
	b := Score(scaled, in, Settings{})
	if !almostEqual(a.BaseRecovery, b.BaseRecovery) {
		t.Errorf("renormalization broken: %v vs %v", a.BaseRecovery, b.BaseRecovery)
	}
}

func TestScore_RecoveryStressAndAlcoholSeparate(t *testing.T) {
	cat := recoveryCatalog()

	withStress := recoveryDay()
	withStress.Stress = core.LevelHigh
	res := Score(cat, withStress, Settings{})
	if !almostEqual(res.Recovery, 60*0.60) {
		t.Errorf("stress high: recovery = %v, want %v", res.Recovery, 60*0.60)
	}

	withAlcohol := recoveryDay()
	withAlcohol.Alcohol = core.LevelHigh
	res = Score(cat, withAlcohol, Settings{})
	if !almostEqual(res.Recovery, 60*0.60) {
		t.Errorf("alcohol high: recovery = %v, want %v", res.Recovery, 60*0.60)
	}

	both := recoveryDay()
	both.Stress = core.LevelHigh
	both.Alcohol = core.LevelHigh
	res = Score(cat, both, Settings{})
	if !almostEqual(res.Recovery, 60*0.60*0.60) {
		t.Errorf("both high: recovery = %v, want %v", res.Recovery, 60*0.60*0.60)
	}
}

func TestScore_RecoveryIgnoresPerformanceOnlyItems(t *testing.T) {
	cat := recoveryCatalog()
	cat.Toggles = append(cat.Toggles, Item{
		ID: "focus", Name: "Focus", Kind: core.KindToggle,
		RecoveryWeight: 50, Impact: core.ImpactPerformance,
		OnDashboard: true, Order: 3,
	})

	in := recoveryDay()
	in.Toggles["focus"] = true
	res := Score(cat, in, Settings{})
	if !almostEqual(res.BaseRecovery, 60) {
		t.Errorf("performance-only item leaked into recovery: %v, want 60", res.BaseRecovery)
	}
}

func TestScore_RecoveryCountsParkedItems(t *testing.T) {
	// Dashboard visibility gates the performance base, not recovery.
	cat := recoveryCatalog()
	cat.Toggles[0].OnDashboard = false

	res := Score(cat, recoveryDay(), Settings{})
	if !almostEqual(res.BaseRecovery, 60) {
		t.Errorf("parked credit item dropped from recovery: %v, want 60", res.BaseRecovery)
	}
}
