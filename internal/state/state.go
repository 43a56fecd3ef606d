// Package state owns the mutable application state: the catalog, the
// working day input, settings, access, and history. The engines stay pure;
// every mutation flows through this container so persistence and undo see
// a single authority.
package state

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nuance-app/nuance/internal/access"
	"github.com/nuance-app/nuance/internal/coach"
	"github.com/nuance-app/nuance/internal/core"
	"github.com/nuance-app/nuance/internal/scoring"
)

// defaultSleepHours is what an untouched sleep slider starts at.
const defaultSleepHours = 7

// Settings are the user-level toggles outside any single day
type Settings struct {
	DisableDriftTriggers bool `json:"disable_drift_triggers"`

	// PersonalizationMode gates catalog edits, dashboard moves, and
	// applying coach plans. Scoring is not recomputed while it is on.
	PersonalizationMode bool `json:"personalization_mode"`
}

// App is the state container. One per process; all access goes through
// its methods, which serialize under an internal lock.
type App struct {
	mu sync.Mutex

	catalog  *core.Catalog
	history  core.History
	day      *core.DayInput
	settings Settings
	gate     access.Gate

	undo *undoStack
}

// New returns a fresh application: default catalog, empty history, and a
// hydrated working input for today.
func New() *App {
	a := &App{
		catalog: core.DefaultCatalog(),
		history: make(core.History),
		gate:    access.NewGate(),
		undo:    newUndoStack(undoDepth),
	}
	a.day = a.freshDay(core.Today(), core.ModeHigh)
	return a
}

// freshDay builds a reset input for the date: sliders at their minimum
// (sleep at its 7h default), everything else off.
func (a *App) freshDay(date string, mode core.Mode) *core.DayInput {
	day := &core.DayInput{
		Date:      date,
		Mode:      mode,
		Alcohol:   core.LevelNone,
		Stress:    core.LevelNone,
		Sliders:   make(map[core.ItemID]float64),
		Toggles:   make(map[core.ItemID]bool),
		Penalties: make(map[core.ItemID]bool),
	}
	hydrate(a.catalog, day)
	return day
}

// hydrate fills any missing input values with defaults so every catalog
// item has a value, including ones added after the day was started.
func hydrate(cat *core.Catalog, day *core.DayInput) {
	for _, item := range cat.Sliders {
		if _, ok := day.Sliders[item.ID]; ok {
			continue
		}
		if item.ID == core.ItemSleep {
			day.Sliders[item.ID] = defaultSleepHours
		} else if item.Slider != nil {
			day.Sliders[item.ID] = item.Slider.Min
		}
	}
	for _, item := range cat.Toggles {
		if _, ok := day.Toggles[item.ID]; !ok {
			day.Toggles[item.ID] = false
		}
	}
	for _, item := range cat.Penalties {
		if _, ok := day.Penalties[item.ID]; !ok {
			day.Penalties[item.ID] = false
		}
	}
}

// -----------------------------------------------------------------------------
// Read accessors
// -----------------------------------------------------------------------------

// Catalog returns a deep copy of the current catalog.
func (a *App) Catalog() *core.Catalog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.catalog.Clone()
}

// Day returns a deep copy of the working day input.
func (a *App) Day() *core.DayInput {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.day.Clone()
}

// History returns a copy of the saved history.
func (a *App) History() core.History {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(core.History, len(a.history))
	for k, v := range a.history {
		out[k] = v
	}
	return out
}

// Settings returns the current settings.
func (a *App) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// Gate returns the current access state.
func (a *App) Gate() access.Gate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gate
}

// Allowed reports whether a gated feature is usable right now.
func (a *App) Allowed(f access.Feature) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gate.Allowed(f)
}

// Score computes the score tuple for the working day input.
func (a *App) Score() core.ScoreResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scoreLocked()
}

func (a *App) scoreLocked() core.ScoreResult {
	return scoring.Score(a.catalog, a.day, scoring.Settings{
		DisableDriftTriggers: a.settings.DisableDriftTriggers,
	})
}

// -----------------------------------------------------------------------------
// Day lifecycle
// -----------------------------------------------------------------------------

// SelectDate switches the working input to the given date: a saved record
// restores its values, an unsaved date starts from defaults.
func (a *App) SelectDate(date string) error {
	if _, err := core.ParseDay(date); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.history[date]
	if !ok {
		a.day = a.freshDay(date, a.day.Mode)
		return nil
	}

	day := &core.DayInput{
		Date:      date,
		Mode:      rec.Mode,
		Alcohol:   rec.Alcohol,
		Stress:    rec.Stress,
		Sliders:   make(map[core.ItemID]float64, len(rec.Sliders)),
		Toggles:   make(map[core.ItemID]bool, len(rec.Toggles)),
		Penalties: make(map[core.ItemID]bool, len(rec.Penalties)),
	}
	for k, v := range rec.Sliders {
		day.Sliders[k] = v
	}
	for k, v := range rec.Toggles {
		day.Toggles[k] = v
	}
	for k, v := range rec.Penalties {
		day.Penalties[k] = v
	}
	hydrate(a.catalog, day)
	a.day = day
	return nil
}

// SetSlider records a slider value on the working day.
func (a *App) SetSlider(id core.ItemID, value float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	item := a.catalog.Find(id)
	if item == nil || item.Kind != core.KindSlider {
		return fmt.Errorf("%w: slider %q", core.ErrItemNotFound, id)
	}
	a.day.Sliders[id] = value
	return nil
}

// SetToggle records a performance toggle on the working day.
func (a *App) SetToggle(id core.ItemID, on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	item := a.catalog.Find(id)
	if item == nil || item.Kind != core.KindToggle {
		return fmt.Errorf("%w: toggle %q", core.ErrItemNotFound, id)
	}
	a.day.Toggles[id] = on
	return nil
}

// SetPenalty records a penalty flag on the working day.
func (a *App) SetPenalty(id core.ItemID, on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	item := a.catalog.Find(id)
	if item == nil || item.Kind != core.KindPenalty {
		return fmt.Errorf("%w: penalty %q", core.ErrItemNotFound, id)
	}
	a.day.Penalties[id] = on
	return nil
}

// SetContext records the alcohol and stress levels on the working day.
func (a *App) SetContext(alcohol, stress core.Level) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.day.Alcohol = alcohol
	a.day.Stress = stress
}

// SetMode changes the status interpretation lens.
func (a *App) SetMode(mode core.Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.day.Mode = mode
}

// SetDriftTriggers enables or disables the contextual DRIFT triggers.
func (a *App) SetDriftTriggers(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings.DisableDriftTriggers = !enabled
}

// SetPersonalization turns personalization mode on or off.
func (a *App) SetPersonalization(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings.PersonalizationMode = on
}

// SaveDay commits the working input: scores it and writes the record,
// replacing any prior record for the date wholesale.
func (a *App) SaveDay() core.DayRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := a.scoreLocked()
	day := a.day.Clone()
	rec := core.DayRecord{
		Date:         day.Date,
		Mode:         day.Mode,
		Alcohol:      day.Alcohol,
		Stress:       day.Stress,
		Sliders:      day.Sliders,
		Toggles:      day.Toggles,
		Penalties:    day.Penalties,
		BaseScore:    snap.BaseScore,
		Score:        snap.Score,
		BaseRecovery: snap.BaseRecovery,
		Recovery:     snap.Recovery,
		Status:       snap.Status,
	}
	a.history[rec.Date] = rec
	return rec
}

// ClearHistory deletes every saved day.
func (a *App) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = make(core.History)
}

// -----------------------------------------------------------------------------
// Catalog editing (personalization-gated)
// -----------------------------------------------------------------------------

// ItemPatch is a partial catalog item update; nil fields are untouched.
type ItemPatch struct {
	Name           *string            `json:"name,omitempty"`
	PerfWeight     *float64           `json:"perf_weight,omitempty"`
	RecoveryWeight *float64           `json:"recovery_weight,omitempty"`
	Multiplier     *float64           `json:"multiplier,omitempty"`
	Impact         *core.Impact       `json:"impact,omitempty"`
	RecoveryRole   *core.RecoveryRole `json:"recovery_role,omitempty"`
	OnDashboard    *bool              `json:"on_dashboard,omitempty"`
	Order          *int               `json:"order,omitempty"`
}

// AddItem creates a custom catalog item of the given kind, parked off the
// dashboard like the original builders do it.
func (a *App) AddItem(kind core.ItemKind, name string) (core.Item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if name == "" {
		return core.Item{}, fmt.Errorf("%w: empty item name", core.ErrInvalidInput)
	}

	a.snapshotLocked()

	var item core.Item
	switch kind {
	case core.KindSlider:
		item = core.Item{
			ID: core.ItemID("sl_custom_" + uuid.NewString()), Name: name, Kind: kind,
			Slider:     &core.SliderSpec{Min: 0, Max: 10, Step: 1, Curve: core.CurveLinear},
			PerfWeight: 10, RecoveryWeight: 5, Impact: core.ImpactBoth,
			RecoveryRole: core.RoleCredit,
			Order:        core.NextOrder(a.catalog.Sliders),
		}
		a.catalog.Sliders = append(a.catalog.Sliders, item)
	case core.KindToggle:
		item = core.Item{
			ID: core.ItemID("pf_custom_" + uuid.NewString()), Name: name, Kind: kind,
			PerfWeight: 10, RecoveryWeight: 5, Impact: core.ImpactBoth,
			RecoveryRole: core.RoleCredit,
			Order:        core.NextOrder(a.catalog.Toggles),
		}
		a.catalog.Toggles = append(a.catalog.Toggles, item)
	case core.KindPenalty:
		item = core.Item{
			ID: core.ItemID("pn_custom_" + uuid.NewString()), Name: name, Kind: kind,
			Multiplier: 0.90, Impact: core.ImpactBoth,
			RecoveryRole: core.RoleCredit,
			Order:        core.NextOrder(a.catalog.Penalties),
		}
		a.catalog.Penalties = append(a.catalog.Penalties, item)
	default:
		return core.Item{}, fmt.Errorf("%w: kind %q", core.ErrInvalidInput, kind)
	}

	hydrate(a.catalog, a.day)
	return item, nil
}

// UpdateItem applies a patch to an existing item. The id and kind are
// immutable; penalty multipliers are clamped to [0,1].
func (a *App) UpdateItem(id core.ItemID, patch ItemPatch) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	item := a.catalog.Find(id)
	if item == nil {
		return fmt.Errorf("%w: %q", core.ErrItemNotFound, id)
	}

	a.snapshotLocked()

	if patch.Name != nil && *patch.Name != "" {
		item.Name = *patch.Name
	}
	if patch.PerfWeight != nil && *patch.PerfWeight >= 0 {
		item.PerfWeight = *patch.PerfWeight
	}
	if patch.RecoveryWeight != nil && *patch.RecoveryWeight >= 0 {
		item.RecoveryWeight = *patch.RecoveryWeight
	}
	if patch.Multiplier != nil && item.Kind == core.KindPenalty {
		item.Multiplier = core.Clamp(*patch.Multiplier, 0, 1)
	}
	if patch.Impact != nil {
		item.Impact = *patch.Impact
	}
	if patch.RecoveryRole != nil {
		item.RecoveryRole = *patch.RecoveryRole
	}
	if patch.OnDashboard != nil {
		item.OnDashboard = *patch.OnDashboard
	}
	if patch.Order != nil {
		item.Order = *patch.Order
	}
	return nil
}

// DeleteItem removes an item and its working-day value.
func (a *App) DeleteItem(id core.ItemID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	found := false
	remove := func(list []core.Item) []core.Item {
		out := list[:0]
		for _, it := range list {
			if it.ID == id {
				found = true
				continue
			}
			out = append(out, it)
		}
		return out
	}

	a.snapshotLocked()
	a.catalog.Sliders = remove(a.catalog.Sliders)
	a.catalog.Toggles = remove(a.catalog.Toggles)
	a.catalog.Penalties = remove(a.catalog.Penalties)
	if !found {
		a.undo.pop() // nothing changed, drop the snapshot
		return fmt.Errorf("%w: %q", core.ErrItemNotFound, id)
	}

	delete(a.day.Sliders, id)
	delete(a.day.Toggles, id)
	delete(a.day.Penalties, id)
	return nil
}

// MoveToDashboard sets the dashboard flag for a batch of items. Moving
// items requires personalization mode, matching the interactive surface.
func (a *App) MoveToDashboard(ids []core.ItemID, onDashboard bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.settings.PersonalizationMode {
		return core.ErrPersonalization
	}

	a.snapshotLocked()
	for _, id := range ids {
		if item := a.catalog.Find(id); item != nil {
			item.OnDashboard = onDashboard
		}
	}
	return nil
}

// ApplyCoachPlan applies a recommendation plan to the catalog. Gated on
// personalization mode; never touches history.
func (a *App) ApplyCoachPlan(plan *coach.Plan, cfg coach.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.settings.PersonalizationMode {
		return core.ErrPersonalization
	}

	a.snapshotLocked()
	coach.Apply(a.catalog, plan, cfg)
	return nil
}

// -----------------------------------------------------------------------------
// Access
// -----------------------------------------------------------------------------

// SetTier changes the user's tier.
func (a *App) SetTier(t access.Tier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate.Tier = t
}

// SetOwnerPIN sets or replaces the owner PIN.
func (a *App) SetOwnerPIN(pin string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gate.SetPIN(pin)
}

// UnlockOwner verifies the PIN and enables the owner override.
func (a *App) UnlockOwner(pin string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.gate.VerifyPIN(pin); err != nil {
		return err
	}
	a.gate.OwnerOverride = true
	return nil
}

// LockOwner disables the owner override.
func (a *App) LockOwner() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate.OwnerOverride = false
}

// -----------------------------------------------------------------------------
// Persistence
// -----------------------------------------------------------------------------

// fileState is the serialized form of everything except history, which the
// storage layer keeps in its own table.
type fileState struct {
	Catalog  *core.Catalog  `json:"catalog"`
	Day      *core.DayInput `json:"day"`
	Settings Settings       `json:"settings"`
	Gate     access.Gate    `json:"gate"`
	Undo     []snapshot     `json:"undo,omitempty"`
}

// Marshal serializes the state blob. Weights and multipliers survive the
// round trip without precision loss.
func (a *App) Marshal() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return json.Marshal(fileState{
		Catalog:  a.catalog,
		Day:      a.day,
		Settings: a.settings,
		Gate:     a.gate,
		Undo:     a.undo.stack,
	})
}

// Restore replaces catalog, day input, settings, gate, and undo stack from
// a serialized blob. On corrupt data it returns ErrCorruptState and leaves
// the current (default) state in place, per the first-run contract.
func (a *App) Restore(data []byte) error {
	var fs fileState
	if err := json.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptState, err)
	}
	if fs.Catalog == nil {
		return fmt.Errorf("%w: missing catalog", core.ErrCorruptState)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fs.Catalog.Normalize()
	a.catalog = fs.Catalog
	a.settings = fs.Settings
	a.gate = fs.Gate
	if a.gate.Tier == "" {
		a.gate.Tier = access.TierFree
	}

	if fs.Day != nil {
		a.day = fs.Day
	} else {
		a.day = a.freshDay(core.Today(), core.ModeHigh)
	}
	if a.day.Sliders == nil {
		a.day.Sliders = make(map[core.ItemID]float64)
	}
	if a.day.Toggles == nil {
		a.day.Toggles = make(map[core.ItemID]bool)
	}
	if a.day.Penalties == nil {
		a.day.Penalties = make(map[core.ItemID]bool)
	}
	if a.day.Mode == "" {
		a.day.Mode = core.ModeHigh
	}
	hydrate(a.catalog, a.day)

	a.undo = newUndoStack(undoDepth)
	a.undo.stack = fs.Undo
	a.undo.trim()
	return nil
}

// SetHistory replaces the in-memory history, used when loading records
// from storage at boot.
func (a *App) SetHistory(h core.History) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if h == nil {
		h = make(core.History)
	}
	a.history = h
}
