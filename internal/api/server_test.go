package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nuance-app/nuance/internal/access"
	"github.com/nuance-app/nuance/internal/core"
	"github.com/nuance-app/nuance/internal/state"
)

// testServer builds a server over fresh in-memory state, no database.
func testServer(t *testing.T) (*Server, *state.App) {
	t.Helper()
	app := state.New()
	s := New(Config{Port: 0, App: app})
	return s, app
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestGetState(t *testing.T) {
	s, _ := testServer(t)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/state", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp map[string]json.RawMessage
	decode(t, rr, &resp)
	for _, key := range []string{"catalog", "day", "score", "settings", "access"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("state response missing %q", key)
		}
	}
}

func TestSetSlider_UpdatesScore(t *testing.T) {
	s, app := testServer(t)

	rr := doJSON(t, s, http.MethodPut, "/api/v1/day/sliders/sleepHours",
		map[string]float64{"value": 3})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var res core.ScoreResult
	decode(t, rr, &res)
	if res != app.Score() {
		t.Errorf("response score %+v != app score %+v", res, app.Score())
	}
	if app.Day().Sliders[core.ItemSleep] != 3 {
		t.Error("slider not applied")
	}
}

func TestSetSlider_UnknownItem(t *testing.T) {
	s, _ := testServer(t)
	rr := doJSON(t, s, http.MethodPut, "/api/v1/day/sliders/nope",
		map[string]float64{"value": 3})
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestSetContext_BadLevel(t *testing.T) {
	s, _ := testServer(t)
	rr := doJSON(t, s, http.MethodPut, "/api/v1/day/context",
		map[string]string{"alcohol": "tons", "stress": "none"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSaveDay_AppendsHistory(t *testing.T) {
	s, app := testServer(t)

	doJSON(t, s, http.MethodPut, "/api/v1/day/toggles/steps", map[string]bool{"on": true})
	rr := doJSON(t, s, http.MethodPost, "/api/v1/day/save", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var rec core.DayRecord
	decode(t, rr, &rec)
	if !rec.Toggles["steps"] {
		t.Error("saved record missing toggle")
	}
	if len(app.History()) != 1 {
		t.Errorf("history size = %d, want 1", len(app.History()))
	}
}

func TestAnalytics_TierLocked(t *testing.T) {
	s, app := testServer(t)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/analytics", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("free tier analytics status = %d, want 403", rr.Code)
	}

	app.SetTier(access.TierPro)
	rr = doJSON(t, s, http.MethodGet, "/api/v1/analytics", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("pro tier analytics status = %d, want 200", rr.Code)
	}
}

func TestAnalytics_BadDays(t *testing.T) {
	s, app := testServer(t)
	app.SetTier(access.TierPro)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/analytics?days=0", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestCoach_TierAndDataGates(t *testing.T) {
	s, app := testServer(t)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/coach", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("free tier coach status = %d, want 403", rr.Code)
	}

	// Pro is not enough for coach.
	app.SetTier(access.TierPro)
	rr = doJSON(t, s, http.MethodGet, "/api/v1/coach", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("pro tier coach status = %d, want 403", rr.Code)
	}

	// Elite with no history: insufficient data.
	app.SetTier(access.TierElite)
	rr = doJSON(t, s, http.MethodGet, "/api/v1/coach", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty history coach status = %d, want 422", rr.Code)
	}
}

func TestOwnerOverride_UnlocksEverything(t *testing.T) {
	s, app := testServer(t)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/access/pin", map[string]string{"pin": "123456"})
	if rr.Code != http.StatusOK {
		t.Fatalf("set pin status = %d, want 200", rr.Code)
	}

	rr = doJSON(t, s, http.MethodPost, "/api/v1/access/unlock", map[string]string{"pin": "999999"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("wrong pin status = %d, want 403", rr.Code)
	}

	rr = doJSON(t, s, http.MethodPost, "/api/v1/access/unlock", map[string]string{"pin": "123456"})
	if rr.Code != http.StatusOK {
		t.Fatalf("unlock status = %d, want 200", rr.Code)
	}

	// Still Free tier, but the override opens analytics.
	if app.Gate().Tier != access.TierFree {
		t.Fatal("tier should still be Free")
	}
	rr = doJSON(t, s, http.MethodGet, "/api/v1/analytics", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("override analytics status = %d, want 200", rr.Code)
	}
}

func TestSetPIN_BadFormat(t *testing.T) {
	s, _ := testServer(t)
	rr := doJSON(t, s, http.MethodPost, "/api/v1/access/pin", map[string]string{"pin": "12a4"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestAddItem_TierLocked(t *testing.T) {
	s, app := testServer(t)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/catalog/toggle", map[string]string{"name": "Sauna"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("free tier builder status = %d, want 403", rr.Code)
	}

	app.SetTier(access.TierElite)
	rr = doJSON(t, s, http.MethodPost, "/api/v1/catalog/toggle", map[string]string{"name": "Sauna"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("elite builder status = %d, want 201", rr.Code)
	}

	var item core.Item
	decode(t, rr, &item)
	if item.Name != "Sauna" || item.Kind != core.KindToggle {
		t.Errorf("created item = %+v", item)
	}
}

func TestMoveDashboard_PersonalizationConflict(t *testing.T) {
	s, app := testServer(t)
	app.SetTier(access.TierElite)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/catalog/dashboard",
		map[string]interface{}{"ids": []string{"sl_ext_0"}, "on_dashboard": true})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 without personalization mode", rr.Code)
	}

	doJSON(t, s, http.MethodPut, "/api/v1/settings",
		map[string]bool{"personalization_mode": true})
	rr = doJSON(t, s, http.MethodPost, "/api/v1/catalog/dashboard",
		map[string]interface{}{"ids": []string{"sl_ext_0"}, "on_dashboard": true})
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestUndo_EmptyStack(t *testing.T) {
	s, _ := testServer(t)
	rr := doJSON(t, s, http.MethodPost, "/api/v1/undo", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}

func TestUndo_AfterCatalogEdit(t *testing.T) {
	s, app := testServer(t)
	app.SetTier(access.TierElite)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/catalog/penalty", map[string]string{"name": "Skipped Walk"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status = %d", rr.Code)
	}
	var item core.Item
	decode(t, rr, &item)

	rr = doJSON(t, s, http.MethodPost, "/api/v1/undo", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("undo status = %d, want 200", rr.Code)
	}
	if app.Catalog().Find(item.ID) != nil {
		t.Error("undo did not revert the add")
	}
}

func TestClearHistory(t *testing.T) {
	s, app := testServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/day/save", nil)
	if len(app.History()) != 1 {
		t.Fatal("save did not record")
	}

	rr := doJSON(t, s, http.MethodDelete, "/api/v1/history", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(app.History()) != 0 {
		t.Error("history not cleared")
	}
}

func TestSetTier_Unknown(t *testing.T) {
	s, _ := testServer(t)
	rr := doJSON(t, s, http.MethodPut, "/api/v1/access/tier", map[string]string{"tier": "Platinum"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
