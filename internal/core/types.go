// Package core defines the fundamental types for Nuance.
// Everything else in the system computes over these.
package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// CATALOG ITEMS - The trackable things
// -----------------------------------------------------------------------------

// ItemID is a type-safe identifier for catalog items.
// IDs are immutable once created and are the only way other parts of the
// system (day inputs, history, selections) refer to an item.
type ItemID string

// Well-known item IDs the engine keys special behavior on.
const (
	ItemSleep      ItemID = "sleepHours" // drives the low-sleep floor penalty
	ItemFasting    ItemID = "fastingHours"
	ItemResistance ItemID = "resistanceSets"
	ItemVest       ItemID = "vestSets"
	ItemCardio     ItemID = "cardio"
	ItemBinge      ItemID = "binge" // drift trigger when active
)

// ItemKind discriminates the three item variants
type ItemKind string

const (
	KindSlider  ItemKind = "slider"
	KindToggle  ItemKind = "toggle"
	KindPenalty ItemKind = "penalty"
)

// CompletionCurve selects how a slider value maps to [0,1]
type CompletionCurve string

const (
	CurveLinear CompletionCurve = "linear"
	// CurveCredit is zero below CreditMin, then ramps to 1 at CreditMax.
	// Used for sleep: rewards being inside the optimal band.
	CurveCredit CompletionCurve = "credit"
)

// Impact gates which aggregations an item participates in
type Impact string

const (
	ImpactPerformance Impact = "performance"
	ImpactRecovery    Impact = "recovery"
	ImpactBoth        Impact = "both"
)

// AffectsRecovery reports whether the impact includes the recovery side.
func (i Impact) AffectsRecovery() bool {
	return i == ImpactRecovery || i == ImpactBoth
}

// RecoveryRole classifies a recovery contributor: credit restores capacity,
// load consumes it. An empty role normalizes to credit.
type RecoveryRole string

const (
	RoleCredit RecoveryRole = "credit"
	RoleLoad   RecoveryRole = "load"
)

// SliderSpec holds the slider-only configuration of an item
type SliderSpec struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`

	Curve CompletionCurve `json:"curve"`

	// Credit band, only meaningful for CurveCredit
	CreditMin float64 `json:"credit_min,omitempty"`
	CreditMax float64 `json:"credit_max,omitempty"`
}

// Item is one trackable catalog entry. Kind selects the variant:
// sliders carry a SliderSpec, penalties carry a Multiplier, toggles
// carry neither.
type Item struct {
	ID   ItemID   `json:"id"`
	Name string   `json:"name"`
	Kind ItemKind `json:"kind"`

	// Slider configuration, nil unless Kind == KindSlider
	Slider *SliderSpec `json:"slider,omitempty"`

	// Penalty dampening factor in [0,1]; 1 = no penalty.
	// Only meaningful for Kind == KindPenalty.
	Multiplier float64 `json:"multiplier,omitempty"`

	// Relative contribution weights; normalized at computation time
	PerfWeight     float64 `json:"perf_weight"`
	RecoveryWeight float64 `json:"recovery_weight"`

	Impact       Impact       `json:"impact"`
	RecoveryRole RecoveryRole `json:"recovery_role,omitempty"`

	// OnDashboard controls whether the item is presented for daily input.
	// Parked items keep their last value but are not re-edited.
	OnDashboard bool `json:"on_dashboard"`

	// Order is the sort key; ties break by ID
	Order int `json:"order"`
}

// Less is the canonical catalog ordering: Order, then ID.
func (it Item) Less(other Item) bool {
	if it.Order != other.Order {
		return it.Order < other.Order
	}
	return it.ID < other.ID
}

// -----------------------------------------------------------------------------
// CATALOG - The full set of trackables
// -----------------------------------------------------------------------------

// Catalog holds the three typed item lists
type Catalog struct {
	Sliders   []Item `json:"sliders"`
	Toggles   []Item `json:"toggles"`
	Penalties []Item `json:"penalties"`
}

// Find returns a pointer into the catalog for the given id, or nil.
func (c *Catalog) Find(id ItemID) *Item {
	for _, list := range [][]Item{c.Sliders, c.Toggles, c.Penalties} {
		for i := range list {
			if list[i].ID == id {
				return &list[i]
			}
		}
	}
	return nil
}

// SortedSliders returns the sliders in canonical order.
func (c *Catalog) SortedSliders() []Item { return sortedItems(c.Sliders) }

// SortedToggles returns the performance toggles in canonical order.
func (c *Catalog) SortedToggles() []Item { return sortedItems(c.Toggles) }

// SortedPenalties returns the penalty toggles in canonical order.
func (c *Catalog) SortedPenalties() []Item { return sortedItems(c.Penalties) }

func sortedItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Clone returns a deep copy. Undo snapshots and coach plans operate on
// clones so later mutation cannot alias.
func (c *Catalog) Clone() *Catalog {
	return &Catalog{
		Sliders:   cloneItems(c.Sliders),
		Toggles:   cloneItems(c.Toggles),
		Penalties: cloneItems(c.Penalties),
	}
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	for i := range out {
		if out[i].Slider != nil {
			spec := *out[i].Slider
			out[i].Slider = &spec
		}
	}
	return out
}

// Normalize repairs invariants after load or edit: penalty multipliers are
// clamped to [0,1], empty recovery roles become credit, empty impacts both.
func (c *Catalog) Normalize() {
	for _, list := range [][]Item{c.Sliders, c.Toggles, c.Penalties} {
		for i := range list {
			if list[i].Kind == KindPenalty {
				list[i].Multiplier = Clamp(list[i].Multiplier, 0, 1)
			}
			if list[i].RecoveryRole == "" {
				list[i].RecoveryRole = RoleCredit
			}
			if list[i].Impact == "" {
				list[i].Impact = ImpactBoth
			}
		}
	}
}

// NextOrder returns one past the highest order in the list.
func NextOrder(items []Item) int {
	max := 0
	for _, it := range items {
		if it.Order > max {
			max = it.Order
		}
	}
	return max + 1
}

// -----------------------------------------------------------------------------
// CONTEXT MODIFIERS
// -----------------------------------------------------------------------------

// Level is a contextual modifier level for alcohol and stress
type Level string

const (
	LevelNone Level = "None"
	LevelLow  Level = "Low"
	LevelMed  Level = "Med"
	LevelHigh Level = "High"
)

// Factor returns the multiplicative dampening for a level.
// Unknown levels are treated as neutral.
func (l Level) Factor() float64 {
	switch l {
	case LevelLow:
		return 0.95
	case LevelMed:
		return 0.85
	case LevelHigh:
		return 0.60
	default:
		return 1.00
	}
}

// ParseLevel parses a user-supplied level, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LevelNone, nil
	case "low":
		return LevelLow, nil
	case "med", "medium":
		return LevelMed, nil
	case "high":
		return LevelHigh, nil
	}
	return LevelNone, fmt.Errorf("%w: level %q", ErrInvalidInput, s)
}

// -----------------------------------------------------------------------------
// MODE & STATUS
// -----------------------------------------------------------------------------

// Mode is the interpretation lens for status labels
type Mode string

const (
	ModeHigh   Mode = "High"
	ModeMedium Mode = "Medium"
	ModeLow    Mode = "Low"
)

// ParseMode parses a user-supplied mode, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ModeHigh, nil
	case "medium", "med":
		return ModeMedium, nil
	case "low", "recovery":
		return ModeLow, nil
	}
	return ModeHigh, fmt.Errorf("%w: mode %q", ErrInvalidInput, s)
}

// Status is the qualitative day classification
type Status string

const (
	StatusDrift         Status = "DRIFT"
	StatusHighOutput    Status = "HIGH OUTPUT"
	StatusOnTrack       Status = "ON TRACK"
	StatusHold          Status = "HOLD"
	StatusSolid         Status = "SOLID"
	StatusRecoveryReady Status = "RECOVERY-READY"
	StatusMaintenance   Status = "MAINTENANCE"
)

// -----------------------------------------------------------------------------
// DAY INPUT / DAY RECORD / HISTORY
// -----------------------------------------------------------------------------

// DayInput is the working state for one calendar day: raw values only,
// held until an explicit save commits them to history.
type DayInput struct {
	Date string `json:"date"` // ISO calendar day, e.g. "2024-01-15"
	Mode Mode   `json:"mode"`

	Alcohol Level `json:"alcohol"`
	Stress  Level `json:"stress"`

	Sliders   map[ItemID]float64 `json:"sliders"`
	Toggles   map[ItemID]bool    `json:"toggles"`
	Penalties map[ItemID]bool    `json:"penalties"`
}

// Clone returns a deep copy of the input.
func (d *DayInput) Clone() *DayInput {
	out := &DayInput{
		Date:      d.Date,
		Mode:      d.Mode,
		Alcohol:   d.Alcohol,
		Stress:    d.Stress,
		Sliders:   make(map[ItemID]float64, len(d.Sliders)),
		Toggles:   make(map[ItemID]bool, len(d.Toggles)),
		Penalties: make(map[ItemID]bool, len(d.Penalties)),
	}
	for k, v := range d.Sliders {
		out.Sliders[k] = v
	}
	for k, v := range d.Toggles {
		out.Toggles[k] = v
	}
	for k, v := range d.Penalties {
		out.Penalties[k] = v
	}
	return out
}

// ScoreResult is the full output of the scoring engine for one day
type ScoreResult struct {
	BaseScore      float64 `json:"base_score"`
	PenaltyProduct float64 `json:"penalty_product"`
	Score          float64 `json:"score"`
	BaseRecovery   float64 `json:"base_recovery"`
	Recovery       float64 `json:"recovery"`
	Status         Status  `json:"status"`
}

// DayRecord is the immutable snapshot saved for one calendar day: the raw
// inputs that were used plus the scores they produced. A second save for the
// same date replaces the record wholesale.
type DayRecord struct {
	Date string `json:"date"`
	Mode Mode   `json:"mode"`

	Alcohol Level `json:"alcohol"`
	Stress  Level `json:"stress"`

	Sliders   map[ItemID]float64 `json:"sliders"`
	Toggles   map[ItemID]bool    `json:"toggles"`
	Penalties map[ItemID]bool    `json:"penalties"`

	BaseScore    float64 `json:"base_score"`
	Score        float64 `json:"score"`
	BaseRecovery float64 `json:"base_recovery"`
	Recovery     float64 `json:"recovery"`
	Status       Status  `json:"status"`
}

// History maps ISO date -> saved record. Storage order is not meaningful;
// consumers sort when order matters.
type History map[string]DayRecord

// Sorted returns all records in ascending date order.
func (h History) Sorted() []DayRecord {
	out := make([]DayRecord, 0, len(h))
	for _, rec := range h {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// -----------------------------------------------------------------------------
// CIVIL DATES
// -----------------------------------------------------------------------------

const dayLayout = "2006-01-02"

// ParseDay parses an ISO calendar day into a UTC-midnight time.
// All day arithmetic runs on these values so month and DST boundaries
// cannot introduce off-by-one errors.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	return t, nil
}

// FormatDay formats a time as an ISO calendar day.
func FormatDay(t time.Time) string {
	return t.Format(dayLayout)
}

// Today returns the current local calendar day as an ISO string.
func Today() string {
	return time.Now().Format(dayLayout)
}

// DaysBetween returns the whole calendar days from a to b (b - a).
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// -----------------------------------------------------------------------------
// HELPERS
// -----------------------------------------------------------------------------

// Clamp bounds v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
