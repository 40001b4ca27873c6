package app

import (
	"github.com/outboundiq/personalize-backend/internal/handlers"
	"github.com/outboundiq/personalize-backend/internal/logger"
)

type Handlers struct {
	Exports  *handlers.ExportsHandler
	Websites *handlers.WebsitesHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Exports:  handlers.NewExportsHandler(serviceset.Exports),
		Websites: handlers.NewWebsitesHandler(serviceset.Websites),
	}
}
