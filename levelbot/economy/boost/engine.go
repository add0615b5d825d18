// Package boost resolves the single effective XP multiplier for a user.
//
// Every call site that needs a boost multiplier goes through
// EffectiveMultiplier; nothing else in the codebase is allowed to rescan the
// boost list with its own expiry logic.
package boost

import (
	"time"

	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database/models"
)

// ActivationResult reports the outcome of a boost grant. Activated is false
// when an unexpired boost with an equal or higher multiplier already exists;
// that is a normal outcome, not an error.
type ActivationResult struct {
	Entry       *models.BoostEntry
	Activated   bool
	CurrentBest float64
}

// EffectiveMultiplier resolves the single multiplier applied to a user's
// rewards at the given instant. Sources never stack: the largest active
// multiplier wins. Entries past their expiry contribute nothing even when
// the sweep has not flipped their active flag yet.
func EffectiveMultiplier(p *models.UserProgression, now time.Time) float64 {
	best := 1.0

	if p.BoostMultiplier > 1 && (p.BoostExpires == nil || p.BoostExpires.After(now)) {
		best = p.BoostMultiplier
	}

	for i := range p.ActiveItems {
		entry := &p.ActiveItems[i]
		if !entry.Active {
			continue
		}
		if entry.ItemType != models.ItemTypeUserBoost && entry.ItemType != models.ItemTypeServerBoost {
			continue
		}
		if entry.Expired(now) {
			continue
		}
		mult := entry.Multiplier
		if mult == 0 {
			mult = config.DefaultBoostMultiplier
		}
		if mult > best {
			best = mult
		}
	}

	return best
}

// ActivateBoost appends a boost entry to the user's inventory. The grant is
// rejected (not an error) when an unexpired boost already matches or beats
// the requested multiplier, since it could never win the best-of resolution.
func ActivateBoost(p *models.UserProgression, multiplier float64, duration time.Duration, name, itemID, itemType string, now time.Time) ActivationResult {
	current := EffectiveMultiplier(p, now)
	if current >= multiplier {
		return ActivationResult{Activated: false, CurrentBest: current}
	}

	var expires *time.Time
	if duration > 0 {
		t := now.Add(duration)
		expires = &t
	}

	entry := models.BoostEntry{
		ItemID:      itemID,
		ItemName:    name,
		ItemType:    itemType,
		PurchasedAt: now,
		ExpiresAt:   expires,
		Active:      true,
		Multiplier:  multiplier,
	}
	p.ActiveItems = append(p.ActiveItems, entry)

	return ActivationResult{
		Entry:       &p.ActiveItems[len(p.ActiveItems)-1],
		Activated:   true,
		CurrentBest: multiplier,
	}
}

// ClearBoosts removes every boost entry and resets the legacy slot.
func ClearBoosts(p *models.UserProgression) {
	kept := p.ActiveItems[:0]
	for _, entry := range p.ActiveItems {
		if entry.ItemType == models.ItemTypeUserBoost || entry.ItemType == models.ItemTypeServerBoost {
			continue
		}
		kept = append(kept, entry)
	}
	p.ActiveItems = kept
	p.BoostMultiplier = 1
	p.BoostExpires = nil
}
