// Package shop sells XP boosts for coins.
package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/economy/boost"
)

var (
	ErrUnknownItem       = errors.New("unknown shop item")
	ErrInsufficientFunds = errors.New("insufficient coins")
	// ErrAlreadyBoosted is returned before any coins move when the buyer's
	// current boost would beat or match the purchased one.
	ErrAlreadyBoosted = errors.New("a boost with an equal or higher multiplier is already active")
)

// Item is a purchasable boost.
type Item struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Multiplier  float64
	Duration    time.Duration
	ItemType    string
}

var catalog = []Item{
	{
		ID:          "boost_minor",
		Name:        "Minor XP Boost",
		Description: "1.5x XP for 1 hour",
		Price:       250,
		Multiplier:  1.5,
		Duration:    time.Hour,
		ItemType:    models.ItemTypeUserBoost,
	},
	{
		ID:          "boost_major",
		Name:        "Major XP Boost",
		Description: "2x XP for 1 hour",
		Price:       600,
		Multiplier:  2.0,
		Duration:    time.Hour,
		ItemType:    models.ItemTypeUserBoost,
	},
	{
		ID:          "boost_weekend",
		Name:        "Weekend XP Boost",
		Description: "2x XP for 48 hours",
		Price:       2000,
		Multiplier:  2.0,
		Duration:    48 * time.Hour,
		ItemType:    models.ItemTypeUserBoost,
	},
	{
		ID:          "boost_mega",
		Name:        "Mega XP Boost",
		Description: "3x XP for 30 minutes",
		Price:       1000,
		Multiplier:  3.0,
		Duration:    30 * time.Minute,
		ItemType:    models.ItemTypeUserBoost,
	},
}

// Catalog returns the purchasable items in display order.
func Catalog() []Item {
	out := make([]Item, len(catalog))
	copy(out, catalog)
	return out
}

// ItemByID looks up a catalog item.
func ItemByID(id string) (Item, bool) {
	for _, item := range catalog {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// PurchaseResult reports a completed purchase.
type PurchaseResult struct {
	Item      Item
	Balance   int64
	ExpiresAt *time.Time
}

type Shop struct {
	users repositories.UserProgressionRepository
	now   func() time.Time
}

func NewShop(users repositories.UserProgressionRepository) *Shop {
	return &Shop{users: users, now: time.Now}
}

// Purchase buys and immediately activates a boost. Rejections (unknown item,
// already boosted, insufficient coins) happen before any coins are deducted.
func (s *Shop) Purchase(ctx context.Context, guildID, userID, itemID string) (*PurchaseResult, error) {
	item, ok := ItemByID(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}

	p, err := s.users.GetOrCreate(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if current := boost.EffectiveMultiplier(p, now); current >= item.Multiplier {
		return nil, fmt.Errorf("%w (current %.2fx)", ErrAlreadyBoosted, current)
	}
	if p.Coins < item.Price {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, p.Coins, item.Price)
	}

	p.Coins -= item.Price
	activation := boost.ActivateBoost(p, item.Multiplier, item.Duration, item.Name, item.ID, item.ItemType, now)
	if !activation.Activated {
		// EffectiveMultiplier was checked above; reaching this means the
		// document changed underneath us. Abort without spending.
		return nil, fmt.Errorf("%w (current %.2fx)", ErrAlreadyBoosted, activation.CurrentBest)
	}

	if err := s.users.Save(ctx, p); err != nil {
		return nil, err
	}

	return &PurchaseResult{
		Item:      item,
		Balance:   p.Coins,
		ExpiresAt: activation.Entry.ExpiresAt,
	}, nil
}
