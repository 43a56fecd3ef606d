// Package coach proposes catalog weight adjustments from historical patterns.
// The engine is heuristic and advisory: it reads history, never writes it,
// and its plan only touches the catalog when explicitly applied.
package coach

import (
	"fmt"
	"math"
	"sort"

	"github.com/nuance-app/nuance/internal/analytics"
	"github.com/nuance-app/nuance/internal/core"
	"github.com/nuance-app/nuance/internal/scoring"
)

// Config tunes the recommendation heuristics
type Config struct {
	WindowDays int // trailing window to analyze
	MinEntries int // fewer saved days than this means no signal to look for

	FrequentShare float64 // active on at least this share of days -> raise
	RareShare     float64 // active on at most this share of days -> lower

	WeightDelta   float64 // perf weight step, applied as +delta / -delta
	TightenDelta  float64 // penalty multiplier step (negative)
	MultiplierMin float64 // tightening floor

	MaxRaise   int
	MaxLower   int
	MaxTighten int
}

// DefaultConfig returns the standard heuristics.
func DefaultConfig() Config {
	return Config{
		WindowDays:    30,
		MinEntries:    7,
		FrequentShare: 0.65,
		RareShare:     0.20,
		WeightDelta:   2,
		TightenDelta:  -0.02,
		MultiplierMin: 0.50,
		MaxRaise:      5,
		MaxLower:      3,
		MaxTighten:    4,
	}
}

// WeightChange proposes a perf-weight delta for one item
type WeightChange struct {
	ID    core.ItemID   `json:"id"`
	Name  string        `json:"name"`
	Kind  core.ItemKind `json:"kind"`
	Delta float64       `json:"delta"`
	Basis string        `json:"basis"` // human-readable justification
}

// MultiplierChange proposes tightening one penalty's multiplier
type MultiplierChange struct {
	ID    core.ItemID `json:"id"`
	Name  string      `json:"name"`
	Delta float64     `json:"delta"`
	Basis string      `json:"basis"`
}

// Plan is a capped, ranked set of proposed catalog changes
type Plan struct {
	WindowDays int    `json:"window_days"`
	EndDate    string `json:"end_date"`
	Entries    int    `json:"entries"`

	Raise   []WeightChange     `json:"raise"`
	Lower   []WeightChange     `json:"lower"`
	Tighten []MultiplierChange `json:"tighten"`
}

// Empty reports whether the plan proposes nothing.
func (p *Plan) Empty() bool {
	return len(p.Raise) == 0 && len(p.Lower) == 0 && len(p.Tighten) == 0
}

// Recommend analyzes the trailing window ending at endDate and returns a
// plan, or ErrInsufficientData when fewer than MinEntries days are saved
// in the window, so callers can tell "no signal" from "not enough data".
func Recommend(cat *core.Catalog, history core.History, endDate string, cfg Config) (*Plan, error) {
	filtered, err := analytics.Window(history, endDate, cfg.WindowDays)
	if err != nil {
		return nil, err
	}
	if len(filtered) < cfg.MinEntries {
		return nil, fmt.Errorf("%w: %d of %d days saved in the last %d",
			core.ErrInsufficientData, len(filtered), cfg.MinEntries, cfg.WindowDays)
	}

	n := len(filtered)
	frequent := int(math.Ceil(float64(n) * cfg.FrequentShare))
	rare := int(math.Floor(float64(n) * cfg.RareShare))

	toggleCounts := make(map[core.ItemID]int)
	penaltyCounts := make(map[core.ItemID]int)
	for _, rec := range filtered {
		for id, on := range rec.Toggles {
			if on {
				toggleCounts[id]++
			}
		}
		for id, on := range rec.Penalties {
			if on {
				penaltyCounts[id]++
			}
		}
	}

	plan := &Plan{WindowDays: cfg.WindowDays, EndDate: endDate, Entries: n}

	for _, item := range cat.SortedToggles() {
		c := toggleCounts[item.ID]
		basis := fmt.Sprintf("Completed %d/%d days", c, n)
		if c >= frequent {
			plan.Raise = append(plan.Raise, WeightChange{
				ID: item.ID, Name: item.Name, Kind: item.Kind,
				Delta: cfg.WeightDelta, Basis: basis,
			})
		} else if c <= rare && item.OnDashboard {
			plan.Lower = append(plan.Lower, WeightChange{
				ID: item.ID, Name: item.Name, Kind: item.Kind,
				Delta: -cfg.WeightDelta, Basis: basis,
			})
		}
	}

	for _, item := range cat.SortedSliders() {
		var sum float64
		count := 0
		for _, rec := range filtered {
			if v, ok := rec.Sliders[item.ID]; ok {
				sum += v
				count++
			}
		}
		if count == 0 {
			continue
		}
		// Completion of the window-average value; with a credit curve this
		// is not the same as the average of daily completions, and the
		// threshold behavior is the point.
		comp := scoring.Completion(item, sum/float64(count))
		basis := fmt.Sprintf("Average completion %.0f%%", comp*100)
		if comp >= 0.7 {
			plan.Raise = append(plan.Raise, WeightChange{
				ID: item.ID, Name: item.Name, Kind: item.Kind,
				Delta: cfg.WeightDelta, Basis: basis,
			})
		} else if comp <= 0.2 && item.OnDashboard {
			plan.Lower = append(plan.Lower, WeightChange{
				ID: item.ID, Name: item.Name, Kind: item.Kind,
				Delta: -cfg.WeightDelta, Basis: basis,
			})
		}
	}

	for _, item := range cat.SortedPenalties() {
		c := penaltyCounts[item.ID]
		if c >= frequent {
			plan.Tighten = append(plan.Tighten, MultiplierChange{
				ID: item.ID, Name: item.Name,
				Delta: cfg.TightenDelta,
				Basis: fmt.Sprintf("Triggered %d/%d days", c, n),
			})
		}
	}

	sort.SliceStable(plan.Raise, func(i, j int) bool { return plan.Raise[i].Delta > plan.Raise[j].Delta })
	sort.SliceStable(plan.Lower, func(i, j int) bool { return plan.Lower[i].Delta < plan.Lower[j].Delta })

	if len(plan.Raise) > cfg.MaxRaise {
		plan.Raise = plan.Raise[:cfg.MaxRaise]
	}
	if len(plan.Lower) > cfg.MaxLower {
		plan.Lower = plan.Lower[:cfg.MaxLower]
	}
	if len(plan.Tighten) > cfg.MaxTighten {
		plan.Tighten = plan.Tighten[:cfg.MaxTighten]
	}

	return plan, nil
}

// Apply mutates the catalog in place per the plan. History is never touched.
// Lowered weights floor at zero; tightened multipliers clamp to
// [cfg.MultiplierMin, 1] and round to two decimals.
func Apply(cat *core.Catalog, plan *Plan, cfg Config) {
	for _, ch := range plan.Raise {
		if item := cat.Find(ch.ID); item != nil {
			item.PerfWeight += ch.Delta
		}
	}
	for _, ch := range plan.Lower {
		if item := cat.Find(ch.ID); item != nil {
			item.PerfWeight = math.Max(0, item.PerfWeight+ch.Delta)
		}
	}
	for _, ch := range plan.Tighten {
		if item := cat.Find(ch.ID); item != nil {
			next := core.Clamp(item.Multiplier+ch.Delta, cfg.MultiplierMin, 1.00)
			item.Multiplier = math.Round(next*100) / 100
		}
	}
}
