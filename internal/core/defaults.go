package core

import "fmt"

// DefaultCatalog returns the built-in catalog used on first run and when
// persisted state cannot be restored. The first items of each list are on
// the dashboard; the rest start parked in the builders view.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Sliders:   defaultSliders(),
		Toggles:   defaultToggles(),
		Penalties: defaultPenalties(),
	}
	c.Sliders = append(c.Sliders, parkedSliders(100)...)
	c.Toggles = append(c.Toggles, parkedToggles(100)...)
	c.Penalties = append(c.Penalties, parkedPenalties(100)...)
	c.Normalize()
	return c
}

func defaultSliders() []Item {
	return []Item{
		{
			ID: ItemFasting, Name: "Fasting (11-24h)", Kind: KindSlider,
			Slider:     &SliderSpec{Min: 11, Max: 24, Step: 0.5, Curve: CurveLinear},
			PerfWeight: 24, RecoveryWeight: 8, Impact: ImpactBoth,
			OnDashboard: true, Order: 1,
		},
		{
			ID: ItemResistance, Name: "Resistance Training (8-30 sets)", Kind: KindSlider,
			Slider:     &SliderSpec{Min: 8, Max: 30, Step: 1, Curve: CurveLinear},
			PerfWeight: 30, RecoveryWeight: 18, Impact: ImpactBoth,
			RecoveryRole: RoleLoad,
			OnDashboard:  true, Order: 2,
		},
		{
			ID: ItemSleep, Name: "Sleep (0-7h, credit at 5-7h)", Kind: KindSlider,
			Slider:     &SliderSpec{Min: 0, Max: 7, Step: 0.25, Curve: CurveCredit, CreditMin: 5, CreditMax: 7},
			PerfWeight: 25, RecoveryWeight: 22, Impact: ImpactBoth,
			OnDashboard: true, Order: 3,
		},
		{
			ID: ItemVest, Name: "Body or Vest Weighted Exercise (8-30 sets)", Kind: KindSlider,
			Slider:     &SliderSpec{Min: 8, Max: 30, Step: 1, Curve: CurveLinear},
			PerfWeight: 15, RecoveryWeight: 6, Impact: ImpactBoth,
			OnDashboard: true, Order: 4,
		},
	}
}

func defaultToggles() []Item {
	toggle := func(id ItemID, name string, pw, rw float64, impact Impact, role RecoveryRole, order int) Item {
		return Item{
			ID: id, Name: name, Kind: KindToggle,
			PerfWeight: pw, RecoveryWeight: rw, Impact: impact,
			RecoveryRole: role, OnDashboard: true, Order: order,
		}
	}
	return []Item{
		toggle(ItemCardio, "Cardio", 30, 14, ImpactBoth, RoleLoad, 1),
		toggle("steps", "Steps", 10, 10, ImpactBoth, RoleCredit, 2),
		toggle("protein", "Daily Protein REQ", 15, 10, ImpactBoth, RoleCredit, 3),
		toggle("omega3", "Omega-3", 15, 10, ImpactBoth, RoleCredit, 4),
		toggle("lowCarb", "Low Carb", 20, 10, ImpactBoth, RoleCredit, 5),
		toggle("suppStack", "Supplement Stack", 10, 10, ImpactBoth, RoleCredit, 6),
		toggle("deepWork", "Deep Work", 15, 0, ImpactPerformance, RoleCredit, 7),
		toggle("fiber", "Fiber", 10, 0, ImpactPerformance, RoleCredit, 8),
		toggle("sunlight", "Sunlight", 10, 10, ImpactBoth, RoleCredit, 9),
		toggle("stretching", "Stretching", 10, 10, ImpactBoth, RoleCredit, 10),
	}
}

func defaultPenalties() []Item {
	penalty := func(id ItemID, name string, mult float64, order int) Item {
		return Item{
			ID: id, Name: name, Kind: KindPenalty,
			Multiplier: mult, Impact: ImpactBoth,
			OnDashboard: true, Order: order,
		}
	}
	return []Item{
		penalty(ItemBinge, "Binge Eating", 0.80, 1),
		penalty("ultra", "Ultra Processed", 0.80, 2),
		penalty("grazing", "Grazing", 0.85, 3),
		penalty("late", "Late Eating", 0.80, 4),
	}
}

// Parked library items: ready-made entries the user can promote to the
// dashboard from the builders view.

func parkedSliders(startOrder int) []Item {
	names := []string{
		"Water Intake (Liters)",
		"Zone 2 Cardio Minutes",
		"Total Active Minutes",
		"Standing Hours",
		"Outdoor Time (Minutes)",
		"Protein Per Meal (Grams)",
		"Resistance Training Volume (Sets)",
		"Deep Work Duration (Minutes)",
		"Morning Routine Completion (%)",
		"Evening Routine Completion (%)",
	}
	out := make([]Item, 0, len(names))
	for i, name := range names {
		out = append(out, Item{
			ID: ItemID(fmt.Sprintf("sl_ext_%d", i)), Name: name, Kind: KindSlider,
			Slider:     &SliderSpec{Min: 0, Max: 10, Step: 1, Curve: CurveLinear},
			PerfWeight: 10, RecoveryWeight: 5, Impact: ImpactBoth,
			Order: startOrder + i,
		})
	}
	return out
}

func parkedToggles(startOrder int) []Item {
	names := []string{
		"Journaling Session",
		"Meditation Practice",
		"Breathwork Session",
		"Red Light Therapy",
		"Cold Plunge Exposure",
		"Sauna Session",
		"Grounding",
		"Nature Walk",
		"Yoga Session",
		"Mobility Flow",
		"Skill Practice",
		"Creative Work",
		"Public Speaking Practice",
		"Reading for Growth",
		"Strategic Planning",
	}
	out := make([]Item, 0, len(names))
	for i, name := range names {
		out = append(out, Item{
			ID: ItemID(fmt.Sprintf("pf_ext_%d", i)), Name: name, Kind: KindToggle,
			PerfWeight: 10, RecoveryWeight: 5, Impact: ImpactBoth,
			Order: startOrder + i,
		})
	}
	return out
}

func parkedPenalties(startOrder int) []Item {
	names := []string{
		"Doomscrolling",
		"Late Night Screen Use",
		"Missed Workout Commitment",
		"Emotional Eating",
		"High Sugar Intake",
		"Ultra High Sodium Meal",
		"Skipped Hydration",
		"Conflict Escalation",
		"Sleep Schedule Drift",
		"Social Isolation",
		"Excessive Caffeine",
		"Missed Morning Routine",
		"Poor Posture All Day",
		"Multitasking Overload",
		"No Outdoor Exposure",
	}
	out := make([]Item, 0, len(names))
	for i, name := range names {
		out = append(out, Item{
			ID: ItemID(fmt.Sprintf("pn_ext_%d", i)), Name: name, Kind: KindPenalty,
			Multiplier: 0.90, Impact: ImpactBoth,
			Order: startOrder + i,
		})
	}
	return out
}
