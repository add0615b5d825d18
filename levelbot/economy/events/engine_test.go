package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/levelforge/levelbot/levelbot/database/models"
)

type fakeEventRepo struct {
	events   []*models.Event
	recorded map[primitive.ObjectID]int64
	failWith error
}

func newFakeEventRepo(events ...*models.Event) *fakeEventRepo {
	return &fakeEventRepo{events: events, recorded: map[primitive.ObjectID]int64{}}
}

func (f *fakeEventRepo) Create(_ context.Context, event *models.Event) error {
	event.ID = primitive.NewObjectID()
	event.Active = true
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRepo) GetRunning(_ context.Context, guildID, eventType string, now time.Time) ([]*models.Event, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []*models.Event
	for _, ev := range f.events {
		if ev.Type != eventType {
			continue
		}
		if ev.GuildID != "" && ev.GuildID != guildID {
			continue
		}
		if !ev.Running(now) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeEventRepo) ListRunning(_ context.Context, guildID string, now time.Time) ([]*models.Event, error) {
	var out []*models.Event
	for _, ev := range f.events {
		if ev.GuildID != "" && ev.GuildID != guildID {
			continue
		}
		if ev.Running(now) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) RecordApplication(_ context.Context, eventID primitive.ObjectID, granted int64) error {
	f.recorded[eventID] += granted
	return nil
}

func (f *fakeEventRepo) End(_ context.Context, eventID primitive.ObjectID) error {
	for _, ev := range f.events {
		if ev.ID == eventID {
			ev.Active = false
			return nil
		}
	}
	return errors.New("event not found")
}

func (f *fakeEventRepo) DeactivateExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func runningEvent(guildID, eventType string, mult float64, bonus int64) *models.Event {
	now := time.Now()
	return &models.Event{
		ID:         primitive.NewObjectID(),
		GuildID:    guildID,
		Type:       eventType,
		Multiplier: mult,
		Bonus:      bonus,
		StartDate:  now.Add(-time.Hour),
		EndDate:    now.Add(time.Hour),
		Active:     true,
	}
}

func TestGetActiveMultiplierComposition(t *testing.T) {
	repo := newFakeEventRepo(
		runningEvent("g1", models.EventTypeXPMultiplier, 2.0, 0),
		runningEvent("g1", models.EventTypeXPMultiplier, 1.5, 10),
		runningEvent("", models.EventTypeXPMultiplier, 0, 25), // global flat bonus
	)
	engine := NewEngine(repo)

	contrib, err := engine.GetActiveMultiplier(context.Background(), "g1", RewardXP)
	if err != nil {
		t.Fatalf("GetActiveMultiplier: %v", err)
	}
	if contrib.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want max 2.0 (never multiplied together)", contrib.Multiplier)
	}
	if contrib.Bonus != 35 {
		t.Errorf("Bonus = %d, want summed 35", contrib.Bonus)
	}
}

func TestGetActiveMultiplierNeutralWithoutEvents(t *testing.T) {
	engine := NewEngine(newFakeEventRepo())

	contrib, err := engine.GetActiveMultiplier(context.Background(), "g1", RewardCoins)
	if err != nil {
		t.Fatalf("GetActiveMultiplier: %v", err)
	}
	if contrib.Multiplier != 1 || contrib.Bonus != 0 {
		t.Errorf("contribution = %+v, want neutral {1, 0}", contrib)
	}
}

func TestGetActiveMultiplierUnknownRewardType(t *testing.T) {
	engine := NewEngine(newFakeEventRepo())
	if _, err := engine.GetActiveMultiplier(context.Background(), "g1", "gems"); err == nil {
		t.Fatal("expected error for unknown reward type")
	}
}

func TestApplyEventRewards(t *testing.T) {
	winner := runningEvent("g1", models.EventTypeXPMultiplier, 2.0, 0)
	bonus := runningEvent("g1", models.EventTypeXPMultiplier, 0, 50)
	repo := newFakeEventRepo(winner, bonus)
	engine := NewEngine(repo)

	app, err := engine.ApplyEventRewards(context.Background(), "u1", "g1", 100, RewardXP, "message")
	if err != nil {
		t.Fatalf("ApplyEventRewards: %v", err)
	}
	if app.Amount != 250 {
		t.Errorf("Amount = %d, want floor(100*2.0)+50 = 250", app.Amount)
	}
	if !app.Applied {
		t.Error("Applied = false, want true")
	}
	if repo.recorded[winner.ID] != 100 {
		t.Errorf("winner granted = %d, want 100", repo.recorded[winner.ID])
	}
	if repo.recorded[bonus.ID] != 50 {
		t.Errorf("bonus granted = %d, want 50", repo.recorded[bonus.ID])
	}
}

func TestApplyEventRewardsOverlappingBonusesRecordOwnShare(t *testing.T) {
	first := runningEvent("g1", models.EventTypeTokenBonus, 0, 30)
	second := runningEvent("g1", models.EventTypeTokenBonus, 0, 20)
	repo := newFakeEventRepo(first, second)
	engine := NewEngine(repo)

	app, err := engine.ApplyEventRewards(context.Background(), "u1", "g1", 0, RewardTokens, "message")
	if err != nil {
		t.Fatalf("ApplyEventRewards: %v", err)
	}
	if app.Amount != 50 || app.Bonus != 50 {
		t.Errorf("app = %+v, want summed bonus of 50", app)
	}
	if repo.recorded[first.ID] != 30 {
		t.Errorf("first event granted = %d, want its own 30", repo.recorded[first.ID])
	}
	if repo.recorded[second.ID] != 20 {
		t.Errorf("second event granted = %d, want its own 20", repo.recorded[second.ID])
	}
}

func TestApplyEventRewardsNoEvents(t *testing.T) {
	engine := NewEngine(newFakeEventRepo())

	app, err := engine.ApplyEventRewards(context.Background(), "u1", "g1", 100, RewardXP, "message")
	if err != nil {
		t.Fatalf("ApplyEventRewards: %v", err)
	}
	if app.Amount != 100 || app.Applied {
		t.Errorf("app = %+v, want untouched amount and Applied false", app)
	}
}

func TestApplyEventRewardsPropagatesRepoError(t *testing.T) {
	repo := newFakeEventRepo()
	repo.failWith = errors.New("connection reset")
	engine := NewEngine(repo)

	if _, err := engine.ApplyEventRewards(context.Background(), "u1", "g1", 100, RewardXP, "message"); err == nil {
		t.Fatal("expected repository error to propagate")
	}
}

func TestStartEventValidation(t *testing.T) {
	engine := NewEngine(newFakeEventRepo())
	ctx := context.Background()

	tests := []struct {
		name      string
		eventName string
		eventType string
		mult      float64
		bonus     int64
		duration  time.Duration
		wantErr   bool
	}{
		{"valid multiplier event", "double-xp", models.EventTypeXPMultiplier, 2.0, 0, time.Hour, false},
		{"valid bonus event", "token-drop", models.EventTypeTokenBonus, 0, 100, time.Hour, false},
		{"multiplier too low", "weak", models.EventTypeXPMultiplier, 1.0, 0, time.Hour, true},
		{"zero bonus", "empty", models.EventTypeTokenBonus, 0, 0, time.Hour, true},
		{"zero duration", "instant", models.EventTypeXPMultiplier, 2.0, 0, 0, true},
		{"missing name", "", models.EventTypeXPMultiplier, 2.0, 0, time.Hour, true},
		{"unknown type", "odd", "reputation", 2.0, 0, time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.StartEvent(ctx, "g1", tt.eventName, tt.eventType, tt.mult, tt.bonus, tt.duration, "admin")
			if (err != nil) != tt.wantErr {
				t.Errorf("StartEvent err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEndEventByName(t *testing.T) {
	ev := runningEvent("g1", models.EventTypeXPMultiplier, 2.0, 0)
	ev.Name = "double-xp"
	repo := newFakeEventRepo(ev)
	engine := NewEngine(repo)

	ended, err := engine.EndEvent(context.Background(), "g1", "double-xp")
	if err != nil {
		t.Fatalf("EndEvent: %v", err)
	}
	if ended.ID != ev.ID || ev.Active {
		t.Errorf("event not deactivated: %+v", ev)
	}

	if _, err := engine.EndEvent(context.Background(), "g1", "double-xp"); err == nil {
		t.Fatal("expected error ending an already-ended event")
	}
}
