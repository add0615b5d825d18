package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TemplateField struct {
	Name   string `bson:"name"`
	Value  string `bson:"value"`
	Inline bool   `bson:"inline"`
}

// EmbedTemplate is a named, guild-scoped embed blueprint that staff can
// build once and send to any channel.
type EmbedTemplate struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	GuildID string             `bson:"guild_id"`
	Name    string             `bson:"name"`

	Title       string          `bson:"title"`
	Description string          `bson:"description"`
	Color       int             `bson:"color"`
	Footer      string          `bson:"footer"`
	ImageURL    string          `bson:"image_url"`
	Thumbnail   string          `bson:"thumbnail"`
	Fields      []TemplateField `bson:"fields"`

	CreatedBy string    `bson:"created_by"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}
