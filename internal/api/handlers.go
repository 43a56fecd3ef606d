package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nuance-app/nuance/internal/access"
	"github.com/nuance-app/nuance/internal/analytics"
	"github.com/nuance-app/nuance/internal/coach"
	"github.com/nuance-app/nuance/internal/core"
	"github.com/nuance-app/nuance/internal/state"
)

// --- Snapshot ---

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	gate := s.app.Gate()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"catalog":  s.app.Catalog(),
		"day":      s.app.Day(),
		"score":    s.app.Score(),
		"settings": s.app.Settings(),
		"access": map[string]interface{}{
			"tier":           gate.Tier,
			"owner_override": gate.OwnerOverride,
			"has_pin":        gate.HasPIN(),
		},
		"undo_depth": s.app.UndoDepth(),
	})
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.app.Score())
}

// --- Working day ---

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.app.Day())
}

func (s *Server) handleSelectDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.app.SelectDate(req.Date); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Day())
}

func (s *Server) handleSetSlider(w http.ResponseWriter, r *http.Request) {
	id := core.ItemID(chi.URLParam(r, "itemID"))
	var req struct {
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.app.SetSlider(id, req.Value); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Score())
}

func (s *Server) handleSetToggle(w http.ResponseWriter, r *http.Request) {
	id := core.ItemID(chi.URLParam(r, "itemID"))
	var req struct {
		On bool `json:"on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.app.SetToggle(id, req.On); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Score())
}

func (s *Server) handleSetPenalty(w http.ResponseWriter, r *http.Request) {
	id := core.ItemID(chi.URLParam(r, "itemID"))
	var req struct {
		On bool `json:"on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.app.SetPenalty(id, req.On); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Score())
}

func (s *Server) handleSetContext(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Alcohol string `json:"alcohol"`
		Stress  string `json:"stress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	alcohol, err := core.ParseLevel(req.Alcohol)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	stress, err := core.ParseLevel(req.Stress)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.app.SetContext(alcohol, stress)
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Score())
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := core.ParseMode(req.Mode)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.app.SetMode(mode)
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Score())
}

func (s *Server) handleSaveDay(w http.ResponseWriter, r *http.Request) {
	rec := s.app.SaveDay()
	if s.historyStore != nil {
		if err := s.historyStore.Save(rec); err != nil {
			s.log.Error("failed to persist day record: %v", err)
		}
	}
	s.persistState()
	s.Broadcast("day_saved", rec)
	s.respondJSON(w, http.StatusOK, rec)
}

// --- History ---

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.app.History().Sorted())
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.app.ClearHistory()
	if s.historyStore != nil {
		if err := s.historyStore.DeleteAll(); err != nil {
			s.log.Error("failed to clear history: %v", err)
		}
	}
	s.Broadcast("history_cleared", nil)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// --- Analytics ---

func (s *Server) handleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	if !s.requireFeature(w, access.FeatureAnalytics) {
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	end := r.URL.Query().Get("end")
	if end == "" {
		end = core.Today()
	}

	catalog := s.app.Catalog()
	res, err := analytics.Compute(s.app.History(), catalog, end, days)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// --- Coach ---

func (s *Server) handleGetCoach(w http.ResponseWriter, r *http.Request) {
	if !s.requireFeature(w, access.FeatureCoach) {
		return
	}

	end := r.URL.Query().Get("end")
	if end == "" {
		end = core.Today()
	}

	plan, err := coach.Recommend(s.app.Catalog(), s.app.History(), end, s.coachCfg)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleApplyCoach(w http.ResponseWriter, r *http.Request) {
	if !s.requireFeature(w, access.FeatureCoach) {
		return
	}

	var plan coach.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.app.ApplyCoachPlan(&plan, s.coachCfg); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Catalog())
}

// --- Catalog ---

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.app.Catalog())
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireFeature(w, access.FeatureBuilders) {
		return
	}

	kind := core.ItemKind(chi.URLParam(r, "kind"))
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.app.AddItem(kind, req.Name)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireFeature(w, access.FeatureBuilders) {
		return
	}

	id := core.ItemID(chi.URLParam(r, "itemID"))
	var patch state.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.app.UpdateItem(id, patch); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Catalog())
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireFeature(w, access.FeatureBuilders) {
		return
	}

	id := core.ItemID(chi.URLParam(r, "itemID"))
	if err := s.app.DeleteItem(id); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Catalog())
}

func (s *Server) handleMoveDashboard(w http.ResponseWriter, r *http.Request) {
	if !s.requireFeature(w, access.FeatureBuilders) {
		return
	}

	var req struct {
		IDs         []core.ItemID `json:"ids"`
		OnDashboard bool          `json:"on_dashboard"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.app.MoveToDashboard(req.IDs, req.OnDashboard); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Catalog())
}

// --- Undo ---

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Undo(); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"catalog":    s.app.Catalog(),
		"day":        s.app.Day(),
		"undo_depth": s.app.UndoDepth(),
	})
}

// --- Settings ---

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.app.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisableDriftTriggers *bool `json:"disable_drift_triggers"`
		PersonalizationMode  *bool `json:"personalization_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DisableDriftTriggers != nil {
		s.app.SetDriftTriggers(!*req.DisableDriftTriggers)
	}
	if req.PersonalizationMode != nil {
		s.app.SetPersonalization(*req.PersonalizationMode)
	}
	s.persistState()
	s.pushScore()
	s.respondJSON(w, http.StatusOK, s.app.Settings())
}

// --- Access ---

func (s *Server) handleGetAccess(w http.ResponseWriter, r *http.Request) {
	gate := s.app.Gate()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tier":           gate.Tier,
		"owner_override": gate.OwnerOverride,
		"has_pin":        gate.HasPIN(),
	})
}

func (s *Server) handleSetTier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier access.Tier `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Tier {
	case access.TierFree, access.TierPro, access.TierElite:
	default:
		s.respondError(w, http.StatusBadRequest, "unknown tier")
		return
	}
	s.app.SetTier(req.Tier)
	s.persistState()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tier": req.Tier})
}

func (s *Server) handleSetPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.app.SetOwnerPIN(req.PIN); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

func (s *Server) handleUnlockOwner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.app.UnlockOwner(req.PIN); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.persistState()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"owner_override": true})
}

func (s *Server) handleLockOwner(w http.ResponseWriter, r *http.Request) {
	s.app.LockOwner()
	s.persistState()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"owner_override": false})
}
