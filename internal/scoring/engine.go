// Package scoring computes daily performance and recovery scores.
// The engine is a pure function over a catalog and one day's input:
// identical arguments always produce identical results.
package scoring

import (
	"github.com/nuance-app/nuance/internal/core"
)

// Low-sleep floor: below this many hours the night is treated as a penalty
// on its own, independent of the sleep item's weight.
const (
	lowSleepHours  = 4.0
	lowSleepFactor = 0.80
)

// driftFloor forces DRIFT regardless of mode when the score falls below it.
const driftFloor = 55.0

// Settings are the user-tunable knobs that affect classification
type Settings struct {
	// DisableDriftTriggers turns off the contextual DRIFT triggers
	// (high alcohol, high stress, binge). The low-score floor always applies.
	DisableDriftTriggers bool
}

// Completion maps an item's raw value into [0,1].
// Degenerate slider ranges (max <= min) yield 0 rather than an error.
func Completion(item core.Item, value float64) float64 {
	switch item.Kind {
	case core.KindSlider:
		spec := item.Slider
		if spec == nil {
			return 0
		}
		if spec.Curve == core.CurveCredit {
			if value < spec.CreditMin {
				return 0
			}
			if spec.CreditMax <= spec.CreditMin {
				return 0
			}
			return core.Clamp((value-spec.CreditMin)/(spec.CreditMax-spec.CreditMin), 0, 1)
		}
		if spec.Max <= spec.Min {
			return 0
		}
		return core.Clamp((value-spec.Min)/(spec.Max-spec.Min), 0, 1)
	case core.KindToggle, core.KindPenalty:
		// Boolean items are scored from the input maps, not here; a raw
		// value above zero counts as on.
		if value > 0 {
			return 1
		}
		return 0
	}
	return 0
}

// sliderValue returns the current value for a slider, falling back to its
// minimum when the input has no entry.
func sliderValue(item core.Item, in *core.DayInput) float64 {
	if v, ok := in.Sliders[item.ID]; ok {
		return v
	}
	if item.Slider != nil {
		return item.Slider.Min
	}
	return 0
}

// baseScore is the weighted mean completion of dashboard-visible sliders
// and toggles, scaled to [0,100]. Zero total weight yields 0.
func baseScore(cat *core.Catalog, in *core.DayInput) float64 {
	var weightSum, contrib float64

	for _, item := range cat.Sliders {
		if !item.OnDashboard || item.Kind != core.KindSlider {
			continue
		}
		w := item.PerfWeight
		weightSum += w
		contrib += w * Completion(item, sliderValue(item, in))
	}
	for _, item := range cat.Toggles {
		if !item.OnDashboard || item.Kind != core.KindToggle {
			continue
		}
		weightSum += item.PerfWeight
		if in.Toggles[item.ID] {
			contrib += item.PerfWeight
		}
	}

	if weightSum <= 0 {
		return 0
	}
	return core.Clamp(contrib/weightSum*100, 0, 100)
}

// penaltyProduct is the multiplicative dampening applied to the base score:
// alcohol and stress factors, each active penalty toggle's multiplier, and
// the low-sleep floor.
func penaltyProduct(cat *core.Catalog, in *core.DayInput) float64 {
	prod := in.Alcohol.Factor() * in.Stress.Factor()
	prod *= penaltyToggleProduct(cat, in)
	if sleepBelowFloor(cat, in) {
		prod *= lowSleepFactor
	}
	return prod
}

// penaltyToggleProduct multiplies the multipliers of all active penalties.
func penaltyToggleProduct(cat *core.Catalog, in *core.DayInput) float64 {
	prod := 1.0
	for _, item := range cat.Penalties {
		if item.Kind != core.KindPenalty {
			continue
		}
		if in.Penalties[item.ID] {
			m := item.Multiplier
			if m == 0 {
				m = 1 // unset multiplier is neutral, not a full wipe
			}
			prod *= core.Clamp(m, 0, 1)
		}
	}
	return prod
}

func sleepBelowFloor(cat *core.Catalog, in *core.DayInput) bool {
	v, ok := in.Sliders[core.ItemSleep]
	if !ok {
		v = 0
	}
	return v < lowSleepHours
}

// recovery computes the recovery pipeline. Contributors are all sliders and
// toggles (dashboard-visible or not) whose impact includes recovery and whose
// recovery weight is positive; their weights are re-normalized to sum to 100
// across exactly that set. Credit contributions add, load contributions
// subtract. The base is then dampened by the stress factor and by an
// alcohol/penalty/low-sleep product computed independently of the
// performance product.
func recovery(cat *core.Catalog, in *core.DayInput) (base, final float64) {
	type contributor struct {
		item core.Item
		comp float64
	}

	var contributors []contributor
	var weightSum float64

	for _, item := range cat.Sliders {
		if item.Impact.AffectsRecovery() && item.RecoveryWeight > 0 {
			contributors = append(contributors, contributor{item, Completion(item, sliderValue(item, in))})
			weightSum += item.RecoveryWeight
		}
	}
	for _, item := range cat.Toggles {
		if item.Impact.AffectsRecovery() && item.RecoveryWeight > 0 {
			comp := 0.0
			if in.Toggles[item.ID] {
				comp = 1.0
			}
			contributors = append(contributors, contributor{item, comp})
			weightSum += item.RecoveryWeight
		}
	}

	if weightSum <= 0 {
		return 0, 0
	}

	var credits, load float64
	for _, c := range contributors {
		w := c.item.RecoveryWeight * (100 / weightSum)
		if c.item.RecoveryRole == core.RoleLoad {
			load += w * c.comp
		} else {
			credits += w * c.comp
		}
	}

	base = core.Clamp(credits-load, 0, 100)

	prod := in.Alcohol.Factor()
	prod *= penaltyToggleProduct(cat, in)
	if sleepBelowFloor(cat, in) {
		prod *= lowSleepFactor
	}

	final = core.Clamp(base*in.Stress.Factor()*prod, 0, 100)
	return base, final
}

// classify runs the status state machine over one day's score.
func classify(score float64, in *core.DayInput, settings Settings) core.Status {
	if score < driftFloor {
		return core.StatusDrift
	}
	if !settings.DisableDriftTriggers {
		if in.Alcohol == core.LevelHigh || in.Stress == core.LevelHigh || in.Penalties[core.ItemBinge] {
			return core.StatusDrift
		}
	}

	switch in.Mode {
	case core.ModeHigh:
		if score >= 80 {
			return core.StatusHighOutput
		}
		if score >= 65 {
			return core.StatusOnTrack
		}
		return core.StatusHold
	case core.ModeMedium:
		if score >= 75 {
			return core.StatusSolid
		}
		if score >= 60 {
			return core.StatusOnTrack
		}
		return core.StatusHold
	default:
		if score >= 70 {
			return core.StatusRecoveryReady
		}
		if score >= driftFloor {
			return core.StatusMaintenance
		}
		return core.StatusHold
	}
}

// Score computes the full result for one day. It has no side effects and
// no state beyond its arguments.
func Score(cat *core.Catalog, in *core.DayInput, settings Settings) core.ScoreResult {
	base := baseScore(cat, in)
	prod := penaltyProduct(cat, in)
	score := core.Clamp(base*prod, 0, 100)
	baseRec, rec := recovery(cat, in)

	return core.ScoreResult{
		BaseScore:      base,
		PenaltyProduct: prod,
		Score:          score,
		BaseRecovery:   baseRec,
		Recovery:       rec,
		Status:         classify(score, in, settings),
	}
}
