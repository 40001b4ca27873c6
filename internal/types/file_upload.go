package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FileUpload holds the parsed spreadsheet rows an export job reads from.
// Data is a JSON array of row objects keyed by the original column headers.
type FileUpload struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Filename  string         `gorm:"column:filename;not null" json:"filename"`
	Data      datatypes.JSON `gorm:"column:data;type:jsonb" json:"data"`
	RowCount  int            `gorm:"column:row_count;not null;default:0" json:"row_count"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (FileUpload) TableName() string { return "file_uploads" }
