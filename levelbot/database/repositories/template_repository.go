package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levelforge/levelbot/levelbot/database"
	"github.com/levelforge/levelbot/levelbot/database/models"
)

var ErrTemplateNotFound = errors.New("embed template not found")

type TemplateRepository interface {
	Upsert(ctx context.Context, tmpl *models.EmbedTemplate) error
	GetByName(ctx context.Context, guildID, name string) (*models.EmbedTemplate, error)
	List(ctx context.Context, guildID string) ([]*models.EmbedTemplate, error)
	Delete(ctx context.Context, guildID, name string) error
}

type templateRepository struct {
	db *database.DB
}

func NewTemplateRepository(db *database.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Upsert(ctx context.Context, tmpl *models.EmbedTemplate) error {
	now := time.Now()
	tmpl.UpdatedAt = now
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}

	_, err := r.db.EmbedTemplates().ReplaceOne(ctx,
		bson.M{"guild_id": tmpl.GuildID, "name": tmpl.Name},
		tmpl,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save embed template: %w", err)
	}
	return nil
}

func (r *templateRepository) GetByName(ctx context.Context, guildID, name string) (*models.EmbedTemplate, error) {
	var tmpl models.EmbedTemplate
	err := r.db.EmbedTemplates().FindOne(ctx, bson.M{"guild_id": guildID, "name": name}).Decode(&tmpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to load embed template: %w", err)
	}
	return &tmpl, nil
}

func (r *templateRepository) List(ctx context.Context, guildID string) ([]*models.EmbedTemplate, error) {
	cursor, err := r.db.EmbedTemplates().Find(ctx,
		bson.M{"guild_id": guildID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list embed templates: %w", err)
	}
	defer cursor.Close(ctx)

	var templates []*models.EmbedTemplate
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode embed templates: %w", err)
	}
	return templates, nil
}

func (r *templateRepository) Delete(ctx context.Context, guildID, name string) error {
	res, err := r.db.EmbedTemplates().DeleteOne(ctx, bson.M{"guild_id": guildID, "name": name})
	if err != nil {
		return fmt.Errorf("failed to delete embed template: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
