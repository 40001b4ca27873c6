package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PersonalizationCache is keyed by (user_id, url). Personalizations maps a
// template name to generated text; merges are non-destructive, so template
// entries written by earlier export runs survive later ones.
type PersonalizationCache struct {
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	URL              string            `gorm:"column:url;primaryKey" json:"url"`
	Personalizations datatypes.JSONMap `gorm:"column:personalizations;type:jsonb" json:"personalizations"`
	CreatedAt        time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null" json:"updated_at"`
}

func (PersonalizationCache) TableName() string { return "personalization_cache" }
