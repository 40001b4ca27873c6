package app

import (
	"github.com/gin-gonic/gin"

	"github.com/outboundiq/personalize-backend/internal/server"
)

func wireRouter(handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ExportsHandler:  handlerset.Exports,
		WebsitesHandler: handlerset.Websites,
	})
}
