// Package analytics aggregates saved day records over rolling windows.
package analytics

import (
	"sort"
	"time"

	"github.com/nuance-app/nuance/internal/core"
)

// topLimit caps the behavior and penalty frequency rankings.
const topLimit = 8

// Frequency is one entry in a top-N ranking. Name resolves against the
// current catalog; an id with no catalog entry keeps the raw id.
type Frequency struct {
	ID    core.ItemID `json:"id"`
	Name  string      `json:"name"`
	Count int         `json:"count"`
}

// Result is the windowed aggregate view of history
type Result struct {
	WindowDays int    `json:"window_days"`
	EndDate    string `json:"end_date"`
	Entries    int    `json:"entries"`

	AvgScore    float64 `json:"avg_score"`
	AvgRecovery float64 `json:"avg_recovery"`
	DriftRate   float64 `json:"drift_rate"` // fraction of entries classified DRIFT

	// CurrentStreak counts consecutive days with a record, walking back
	// from the end date. BestStreak is the longest run anywhere in history.
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`

	TopBehaviors []Frequency `json:"top_behaviors"`
	TopPenalties []Frequency `json:"top_penalties"`
}

// Window returns the records whose date falls within
// [end-(days-1), end] inclusive, in ascending date order.
// Day arithmetic is calendar-based, never elapsed-time-based.
func Window(history core.History, endDate string, days int) ([]core.DayRecord, error) {
	end, err := core.ParseDay(endDate)
	if err != nil {
		return nil, err
	}

	var out []core.DayRecord
	for _, rec := range history {
		d, err := core.ParseDay(rec.Date)
		if err != nil {
			continue // malformed record dates are skipped, not fatal
		}
		diff := core.DaysBetween(d, end)
		if diff >= 0 && diff <= days-1 {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Compute aggregates the window ending at endDate. An empty window yields
// zero aggregates; streaks always consider the entire history.
func Compute(history core.History, catalog *core.Catalog, endDate string, days int) (*Result, error) {
	filtered, err := Window(history, endDate, days)
	if err != nil {
		return nil, err
	}

	res := &Result{
		WindowDays: days,
		EndDate:    endDate,
		Entries:    len(filtered),
	}

	if len(filtered) > 0 {
		var scoreSum, recSum float64
		drift := 0
		for _, rec := range filtered {
			scoreSum += rec.Score
			recSum += rec.Recovery
			if rec.Status == core.StatusDrift {
				drift++
			}
		}
		n := float64(len(filtered))
		res.AvgScore = scoreSum / n
		res.AvgRecovery = recSum / n
		res.DriftRate = float64(drift) / n
	}

	res.CurrentStreak, res.BestStreak = Streaks(history, endDate)
	res.TopBehaviors, res.TopPenalties = topCounts(filtered, catalog)

	return res, nil
}

// Streaks computes the current streak (consecutive recorded days walking
// backward from endDate) and the best streak across all of history.
func Streaks(history core.History, endDate string) (current, best int) {
	if len(history) == 0 {
		return 0, 0
	}

	sorted := history.Sorted()
	run := 0
	var prev time.Time
	for i, rec := range sorted {
		d, err := core.ParseDay(rec.Date)
		if err != nil {
			continue
		}
		if i > 0 && core.DaysBetween(prev, d) == 1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
		prev = d
	}

	cursor, err := core.ParseDay(endDate)
	if err != nil {
		return 0, best
	}
	for {
		if _, ok := history[core.FormatDay(cursor)]; !ok {
			break
		}
		current++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return current, best
}

func topCounts(filtered []core.DayRecord, catalog *core.Catalog) (behaviors, penalties []Frequency) {
	behaviorCounts := make(map[core.ItemID]int)
	penaltyCounts := make(map[core.ItemID]int)

	for _, rec := range filtered {
		for id, on := range rec.Toggles {
			if on {
				behaviorCounts[id]++
			}
		}
		for id, on := range rec.Penalties {
			if on {
				penaltyCounts[id]++
			}
		}
	}

	behaviors = rank(behaviorCounts, catalog)
	penalties = rank(penaltyCounts, catalog)
	return behaviors, penalties
}

func rank(counts map[core.ItemID]int, catalog *core.Catalog) []Frequency {
	out := make([]Frequency, 0, len(counts))
	for id, count := range counts {
		name := string(id)
		if item := catalog.Find(id); item != nil {
			name = item.Name
		}
		out = append(out, Frequency{ID: id, Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID // stable display order on ties
	})
	if len(out) > topLimit {
		out = out[:topLimit]
	}
	return out
}
