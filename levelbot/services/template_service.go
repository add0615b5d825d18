package services

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"

	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
)

// templateNames implements fuzzy.Source over template names.
type templateNames []*models.EmbedTemplate

func (t templateNames) String(i int) string { return t[i].Name }
func (t templateNames) Len() int            { return len(t) }

type cachedTemplate struct {
	tmpl      *models.EmbedTemplate
	fetchedAt time.Time
}

// TemplateService serves guild embed templates with a read-through cache.
// Mutations go through this service so the cache never serves a deleted or
// stale template past its TTL.
type TemplateService struct {
	repo  repositories.TemplateRepository
	cache *lru.Cache
	ttl   time.Duration
}

func NewTemplateService(repo repositories.TemplateRepository) *TemplateService {
	cache, _ := lru.New(config.TemplateCacheSize)
	return &TemplateService{
		repo:  repo,
		cache: cache,
		ttl:   config.TemplateCacheTTL,
	}
}

func cacheKey(guildID, name string) string {
	return guildID + ":" + name
}

func (s *TemplateService) Get(ctx context.Context, guildID, name string) (*models.EmbedTemplate, error) {
	key := cacheKey(guildID, name)
	if v, ok := s.cache.Get(key); ok {
		entry := v.(cachedTemplate)
		if time.Since(entry.fetchedAt) < s.ttl {
			return entry.tmpl, nil
		}
		s.cache.Remove(key)
	}

	tmpl, err := s.repo.GetByName(ctx, guildID, name)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, cachedTemplate{tmpl: tmpl, fetchedAt: time.Now()})
	return tmpl, nil
}

func (s *TemplateService) Save(ctx context.Context, tmpl *models.EmbedTemplate) error {
	if err := s.repo.Upsert(ctx, tmpl); err != nil {
		return err
	}
	s.Invalidate(tmpl.GuildID, tmpl.Name)
	return nil
}

func (s *TemplateService) Delete(ctx context.Context, guildID, name string) error {
	if err := s.repo.Delete(ctx, guildID, name); err != nil {
		return err
	}
	s.Invalidate(guildID, name)
	return nil
}

func (s *TemplateService) Invalidate(guildID, name string) {
	s.cache.Remove(cacheKey(guildID, name))
}

func (s *TemplateService) List(ctx context.Context, guildID string) ([]*models.EmbedTemplate, error) {
	return s.repo.List(ctx, guildID)
}

// Search fuzzy-matches template names, for autocomplete.
func (s *TemplateService) Search(ctx context.Context, guildID, query string, limit int) ([]*models.EmbedTemplate, error) {
	templates, err := s.repo.List(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if query == "" {
		if len(templates) > limit {
			templates = templates[:limit]
		}
		return templates, nil
	}

	matches := fuzzy.FindFrom(query, templateNames(templates))
	out := make([]*models.EmbedTemplate, 0, limit)
	for _, m := range matches {
		out = append(out, templates[m.Index])
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// BuildEmbed renders a stored template into a Discord embed.
func BuildEmbed(tmpl *models.EmbedTemplate) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(tmpl.Title).
		SetDescription(tmpl.Description)

	if tmpl.Color != 0 {
		builder.SetColor(tmpl.Color)
	}
	if tmpl.Footer != "" {
		builder.SetFooterText(tmpl.Footer)
	}
	if tmpl.ImageURL != "" {
		builder.SetImage(tmpl.ImageURL)
	}
	if tmpl.Thumbnail != "" {
		builder.SetThumbnail(tmpl.Thumbnail)
	}
	for _, f := range tmpl.Fields {
		builder.AddField(f.Name, f.Value, f.Inline)
	}
	return builder.Build()
}
