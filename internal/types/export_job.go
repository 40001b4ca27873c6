package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ExportStatusProcessing = "processing"
	ExportStatusCompleted  = "completed"
	ExportStatusFailed     = "failed"
)

// ExportJob tracks one export run. ProcessedRows is monotonically
// non-decreasing; the row is terminal once Status leaves "processing".
type ExportJob struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	FileID            uuid.UUID      `gorm:"column:file_id;type:uuid;not null;index" json:"file_id"`
	SelectedTemplates datatypes.JSON `gorm:"column:selected_templates;type:jsonb" json:"selected_templates"`
	WebsiteURLs       datatypes.JSON `gorm:"column:website_urls;type:jsonb" json:"website_urls"`
	TotalRows         int            `gorm:"column:total_rows;not null;default:0" json:"total_rows"`
	ProcessedRows     int            `gorm:"column:processed_rows;not null;default:0" json:"processed_rows"`
	Status            string         `gorm:"column:status;not null;index" json:"status"`
	RowData           datatypes.JSON `gorm:"column:row_data;type:jsonb" json:"row_data"`
	ErrorMessage      string         `gorm:"column:error_message" json:"error_message"`
	CreditsUsed       int            `gorm:"column:credits_used;not null;default:0" json:"credits_used"`
	CreatedAt         time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (ExportJob) TableName() string { return "export_jobs" }
