package access

import (
	"errors"
	"testing"

	"github.com/nuance-app/nuance/internal/core"
)

func TestTier_Meets(t *testing.T) {
	cases := []struct {
		have, need Tier
		want       bool
	}{
		{TierFree, TierFree, true},
		{TierFree, TierPro, false},
		{TierFree, TierElite, false},
		{TierPro, TierPro, true},
		{TierPro, TierElite, false},
		{TierElite, TierFree, true},
		{TierElite, TierElite, true},
		{Tier(""), TierFree, true}, // unknown ranks as Free
	}
	for _, tc := range cases {
		if got := tc.have.Meets(tc.need); got != tc.want {
			t.Errorf("%s meets %s = %v, want %v", tc.have, tc.need, got, tc.want)
		}
	}
}

func TestRequired(t *testing.T) {
	cases := []struct {
		feature Feature
		want    Tier
	}{
		{FeatureDashboard, TierFree},
		{FeatureTutorial, TierFree},
		{FeatureAnalytics, TierPro},
		{FeatureBuilders, TierElite},
		{FeatureCoach, TierElite},
		{Feature("mystery"), TierElite}, // unknown features lock tight
	}
	for _, tc := range cases {
		if got := Required(tc.feature); got != tc.want {
			t.Errorf("Required(%s) = %s, want %s", tc.feature, got, tc.want)
		}
	}
}

func TestGate_Allowed(t *testing.T) {
	g := NewGate()
	if !g.Allowed(FeatureDashboard) {
		t.Error("free tier should reach the dashboard")
	}
	if g.Allowed(FeatureAnalytics) {
		t.Error("free tier should not reach analytics")
	}

	g.Tier = TierPro
	if !g.Allowed(FeatureAnalytics) || g.Allowed(FeatureCoach) {
		t.Error("pro tier gates wrong")
	}

	g.Tier = TierFree
	g.OwnerOverride = true
	if !g.Allowed(FeatureCoach) {
		t.Error("owner override should bypass every gate")
	}
}

func TestGate_PINLifecycle(t *testing.T) {
	g := NewGate()
	if g.HasPIN() {
		t.Fatal("new gate should have no PIN")
	}

	if err := g.SetPIN("123456"); err != nil {
		t.Fatalf("SetPIN() error = %v", err)
	}
	if !g.HasPIN() {
		t.Fatal("PIN not stored")
	}
	if g.OwnerPINHash == "123456" {
		t.Fatal("PIN stored in the clear")
	}

	if err := g.VerifyPIN("123456"); err != nil {
		t.Errorf("correct PIN rejected: %v", err)
	}
	if err := g.VerifyPIN("654321"); !errors.Is(err, core.ErrBadPIN) {
		t.Errorf("wrong PIN err = %v, want ErrBadPIN", err)
	}
}

func TestGate_PINFormat(t *testing.T) {
	g := NewGate()
	for _, pin := range []string{"", "123", "1234567890123", "12a4", "12 34", "-1234"} {
		if err := g.SetPIN(pin); !errors.Is(err, core.ErrPINFormat) {
			t.Errorf("SetPIN(%q) err = %v, want ErrPINFormat", pin, err)
		}
	}
	for _, pin := range []string{"1234", "123456789012"} {
		if err := g.SetPIN(pin); err != nil {
			t.Errorf("SetPIN(%q) err = %v, want nil", pin, err)
		}
	}
}

func TestGate_VerifyWithoutPIN(t *testing.T) {
	g := NewGate()
	if err := g.VerifyPIN("1234"); !errors.Is(err, core.ErrBadPIN) {
		t.Errorf("err = %v, want ErrBadPIN", err)
	}
}
