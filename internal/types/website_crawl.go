package types

import (
	"time"

	"gorm.io/datatypes"
)

// WebsiteCrawl is keyed by normalized URL. CrawlData holds the cleaned page
// fragments returned by the crawl provider and is merge-updated in place;
// rows are never deleted by the pipeline.
type WebsiteCrawl struct {
	URL       string         `gorm:"column:url;primaryKey" json:"url"`
	CrawlData datatypes.JSON `gorm:"column:crawl_data;type:jsonb" json:"crawl_data"`
	WordCount int            `gorm:"column:word_count;not null;default:0" json:"word_count"`
	Summary   string         `gorm:"column:summary" json:"summary"`
	Favicon   string         `gorm:"column:favicon" json:"favicon"`
	IsLoading bool           `gorm:"column:is_loading;not null;default:false" json:"is_loading"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (WebsiteCrawl) TableName() string { return "website_crawls" }
