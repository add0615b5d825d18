package shop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
)

type fakeUsers struct {
	repositories.UserProgressionRepository
	p     *models.UserProgression
	saves int
}

func (f *fakeUsers) GetOrCreate(_ context.Context, _, _ string) (*models.UserProgression, error) {
	return f.p, nil
}

func (f *fakeUsers) Save(_ context.Context, _ *models.UserProgression) error {
	f.saves++
	return nil
}

func newTestShop(p *models.UserProgression) (*Shop, *fakeUsers) {
	users := &fakeUsers{p: p}
	s := NewShop(users)
	s.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return s, users
}

func TestPurchaseActivatesBoost(t *testing.T) {
	p := &models.UserProgression{GuildID: "g1", UserID: "u1", Coins: 1000, BoostMultiplier: 1}
	s, users := newTestShop(p)

	res, err := s.Purchase(context.Background(), "g1", "u1", "boost_major")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if res.Balance != 400 {
		t.Errorf("Balance = %d, want 400", res.Balance)
	}
	if len(p.ActiveItems) != 1 || p.ActiveItems[0].Multiplier != 2.0 {
		t.Errorf("boost not activated: %+v", p.ActiveItems)
	}
	if res.ExpiresAt == nil {
		t.Error("ExpiresAt = nil, want set")
	}
	if users.saves != 1 {
		t.Errorf("saves = %d, want 1", users.saves)
	}
}

func TestPurchaseUnknownItem(t *testing.T) {
	s, users := newTestShop(&models.UserProgression{Coins: 1000, BoostMultiplier: 1})

	_, err := s.Purchase(context.Background(), "g1", "u1", "boost_imaginary")
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("err = %v, want ErrUnknownItem", err)
	}
	if users.saves != 0 {
		t.Errorf("saves = %d, want 0", users.saves)
	}
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	p := &models.UserProgression{Coins: 100, BoostMultiplier: 1}
	s, users := newTestShop(p)

	_, err := s.Purchase(context.Background(), "g1", "u1", "boost_major")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if p.Coins != 100 || users.saves != 0 {
		t.Errorf("coins = %d saves = %d, want untouched balance", p.Coins, users.saves)
	}
}

func TestPurchaseRejectedWhenAlreadyBoosted(t *testing.T) {
	future := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	p := &models.UserProgression{
		Coins:           5000,
		BoostMultiplier: 1,
		ActiveItems: []models.BoostEntry{{
			ItemType:   models.ItemTypeUserBoost,
			Active:     true,
			ExpiresAt:  &future,
			Multiplier: 3.0,
		}},
	}
	s, users := newTestShop(p)

	_, err := s.Purchase(context.Background(), "g1", "u1", "boost_major")
	if !errors.Is(err, ErrAlreadyBoosted) {
		t.Fatalf("err = %v, want ErrAlreadyBoosted", err)
	}
	if p.Coins != 5000 || users.saves != 0 {
		t.Errorf("coins = %d saves = %d, rejection must precede deduction", p.Coins, users.saves)
	}
}

func TestPurchaseAllowedAfterExpiry(t *testing.T) {
	past := time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)
	p := &models.UserProgression{
		Coins:           1000,
		BoostMultiplier: 1,
		ActiveItems: []models.BoostEntry{{
			ItemType:   models.ItemTypeUserBoost,
			Active:     true, // sweep has not run yet
			ExpiresAt:  &past,
			Multiplier: 3.0,
		}},
	}
	s, _ := newTestShop(p)

	if _, err := s.Purchase(context.Background(), "g1", "u1", "boost_minor"); err != nil {
		t.Fatalf("Purchase after expiry: %v", err)
	}
}

func TestCatalogLookup(t *testing.T) {
	for _, item := range Catalog() {
		got, ok := ItemByID(item.ID)
		if !ok || got.Name != item.Name {
			t.Errorf("ItemByID(%q) = %+v, %v", item.ID, got, ok)
		}
		if item.Price <= 0 || item.Multiplier <= 1 || item.Duration <= 0 {
			t.Errorf("catalog item %q has invalid parameters: %+v", item.ID, item)
		}
	}
}
