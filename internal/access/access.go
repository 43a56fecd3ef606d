// Package access implements the tier gate and the owner override.
package access

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"

	"github.com/nuance-app/nuance/internal/core"
)

// Tier is the user's subscription level
type Tier string

const (
	TierFree  Tier = "Free"
	TierPro   Tier = "Pro"
	TierElite Tier = "Elite"
)

func (t Tier) rank() int {
	switch t {
	case TierPro:
		return 1
	case TierElite:
		return 2
	default:
		return 0
	}
}

// Meets reports whether the tier satisfies the requirement.
func (t Tier) Meets(required Tier) bool {
	return t.rank() >= required.rank()
}

// Feature is a gated area of the application
type Feature string

const (
	FeatureDashboard Feature = "dashboard"
	FeatureTutorial  Feature = "tutorial"
	FeatureAnalytics Feature = "analytics"
	FeatureBuilders  Feature = "builders"
	FeatureCoach     Feature = "coach"
)

// Required returns the tier a feature needs. Unknown features require Elite.
func Required(f Feature) Tier {
	switch f {
	case FeatureDashboard, FeatureTutorial:
		return TierFree
	case FeatureAnalytics:
		return TierPro
	case FeatureBuilders, FeatureCoach:
		return TierElite
	default:
		return TierElite
	}
}

var pinPattern = regexp.MustCompile(`^\d{4,12}$`)

// Gate holds the access state persisted with the application
type Gate struct {
	Tier          Tier   `json:"tier"`
	OwnerOverride bool   `json:"owner_override"`
	OwnerPINHash  string `json:"owner_pin_hash,omitempty"`
}

// NewGate returns the first-run gate: free tier, no override, no PIN.
func NewGate() Gate {
	return Gate{Tier: TierFree}
}

// Allowed reports whether a feature is usable: the owner override bypasses
// all tier checks.
func (g *Gate) Allowed(f Feature) bool {
	if g.OwnerOverride {
		return true
	}
	tier := g.Tier
	if tier == "" {
		tier = TierFree
	}
	return tier.Meets(Required(f))
}

// SetPIN hashes and stores a new owner PIN. The PIN must be 4-12 digits.
func (g *Gate) SetPIN(pin string) error {
	if !pinPattern.MatchString(pin) {
		return core.ErrPINFormat
	}
	g.OwnerPINHash = hashPIN(pin)
	return nil
}

// HasPIN reports whether an owner PIN has ever been set.
func (g *Gate) HasPIN() bool { return g.OwnerPINHash != "" }

// VerifyPIN checks a PIN attempt against the stored hash.
func (g *Gate) VerifyPIN(pin string) error {
	if g.OwnerPINHash == "" {
		return core.ErrBadPIN
	}
	attempt := hashPIN(pin)
	if subtle.ConstantTimeCompare([]byte(attempt), []byte(g.OwnerPINHash)) != 1 {
		return core.ErrBadPIN
	}
	return nil
}

func hashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}
