package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/events"

	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/leveling"
	"github.com/levelforge/levelbot/levelbot/logger"
)

type voiceSession struct {
	guildID   string
	userID    string
	channelID string
	roleIDs   []string
	joinedAt  time.Time
	// lastAwardAt gates the per-interval grant; the global tick may fire
	// more often than a guild's interval.
	lastAwardAt time.Time
	awarded     int64
}

// VoiceTracker follows voice state updates and awards XP per interval spent
// in voice, up to the guild's per-session cap. Sessions live in memory; a
// restart forfeits the partial interval, nothing more.
type VoiceTracker struct {
	guilds repositories.GuildConfigRepository
	ledger *leveling.Ledger

	mu       sync.Mutex
	sessions map[string]*voiceSession // "guildID:userID"

	tick   time.Duration
	stopCh chan struct{}
}

func NewVoiceTracker(guilds repositories.GuildConfigRepository, ledger *leveling.Ledger, tick time.Duration) *VoiceTracker {
	return &VoiceTracker{
		guilds:   guilds,
		ledger:   ledger,
		sessions: make(map[string]*voiceSession),
		tick:     tick,
		stopCh:   make(chan struct{}),
	}
}

func (t *VoiceTracker) OnVoiceStateUpdate(e *events.GuildVoiceStateUpdate) {
	if e.Member.User.Bot {
		return
	}

	guildID := e.VoiceState.GuildID.String()
	userID := e.VoiceState.UserID.String()
	key := guildID + ":" + userID

	t.mu.Lock()
	defer t.mu.Unlock()

	if e.VoiceState.ChannelID == nil {
		delete(t.sessions, key)
		return
	}

	channelID := e.VoiceState.ChannelID.String()
	if s, ok := t.sessions[key]; ok {
		// Channel hop keeps the session and its per-session accounting.
		s.channelID = channelID
		return
	}

	roleIDs := make([]string, 0, len(e.Member.RoleIDs))
	for _, id := range e.Member.RoleIDs {
		roleIDs = append(roleIDs, id.String())
	}

	now := time.Now()
	t.sessions[key] = &voiceSession{
		guildID:     guildID,
		userID:      userID,
		channelID:   channelID,
		roleIDs:     roleIDs,
		joinedAt:    now,
		lastAwardAt: now,
	}
}

func (t *VoiceTracker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.awardTick(ctx)
			case <-t.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	logger.LogSystem("Voice tracker started", slog.Duration("tick", t.tick))
}

func (t *VoiceTracker) Stop() {
	close(t.stopCh)
}

func (t *VoiceTracker) snapshot() []*voiceSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*voiceSession, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s)
	}
	return out
}

func (t *VoiceTracker) awardTick(ctx context.Context) {
	for _, s := range t.snapshot() {
		tickCtx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
		t.awardSession(tickCtx, s)
		cancel()
	}
}

func (t *VoiceTracker) awardSession(ctx context.Context, s *voiceSession) {
	cfg, err := t.guilds.GetOrCreate(ctx, s.guildID)
	if err != nil {
		slog.Error("Failed to load guild config for voice reward",
			slog.String("type", "xp"),
			slog.String("guild_id", s.guildID),
			slog.Any("error", err))
		return
	}

	now := time.Now()
	interval := time.Duration(cfg.VoiceXP.IntervalMinutes) * time.Minute
	if interval <= 0 || now.Sub(s.lastAwardAt) < interval {
		return
	}

	amount := cfg.VoiceXP.PerMinute * int64(cfg.VoiceXP.IntervalMinutes)
	if cfg.VoiceXP.MaxPerSession > 0 {
		remaining := cfg.VoiceXP.MaxPerSession - s.awarded
		if remaining <= 0 {
			return
		}
		if amount > remaining {
			amount = remaining
		}
	}
	if amount <= 0 {
		return
	}

	if _, err := t.ledger.ApplyReward(ctx, leveling.RewardRequest{
		GuildID:     s.guildID,
		UserID:      s.userID,
		ChannelID:   s.channelID,
		RoleIDs:     s.roleIDs,
		Source:      leveling.SourceVoice,
		FixedAmount: amount,
	}); err != nil {
		slog.Error("Failed to apply voice reward",
			slog.String("type", "xp"),
			slog.String("guild_id", s.guildID),
			slog.String("user_id", s.userID),
			slog.Any("error", err))
		return
	}

	// The session cap counts what was requested, not what survived caps,
	// so daily-capped users still burn session allowance.
	t.mu.Lock()
	s.awarded += amount
	s.lastAwardAt = now
	t.mu.Unlock()
}
