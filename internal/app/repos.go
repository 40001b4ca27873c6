package app

import (
	"gorm.io/gorm"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/repos"
)

type Repos struct {
	User                 repos.UserRepo
	CreditTransaction    repos.CreditTransactionRepo
	FileUpload           repos.FileUploadRepo
	WebsiteCrawl         repos.WebsiteCrawlRepo
	PersonalizationCache repos.PersonalizationCacheRepo
	ExportJob            repos.ExportJobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:                 repos.NewUserRepo(db, log),
		CreditTransaction:    repos.NewCreditTransactionRepo(db, log),
		FileUpload:           repos.NewFileUploadRepo(db, log),
		WebsiteCrawl:         repos.NewWebsiteCrawlRepo(db, log),
		PersonalizationCache: repos.NewPersonalizationCacheRepo(db, log),
		ExportJob:            repos.NewExportJobRepo(db, log),
	}
}
