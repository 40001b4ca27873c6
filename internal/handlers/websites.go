package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/outboundiq/personalize-backend/internal/services"
)

type WebsitesHandler struct {
	websites services.WebsiteService
}

func NewWebsitesHandler(websites services.WebsiteService) *WebsitesHandler {
	return &WebsitesHandler{websites: websites}
}

type processWebsitesRequest struct {
	URLs          []string `json:"urls"`
	TotalRows     int      `json:"total_rows"`
	UpdateSummary bool     `json:"update_summary"`
}

type siteResponse struct {
	URL     string `json:"url"`
	Summary string `json:"summary,omitempty"`
	Cached  bool   `json:"cached"`
	Error   string `json:"error,omitempty"`
}

// POST /api/websites/process runs a synchronous crawl and summarize pass
// over a URL list.
func (h *WebsitesHandler) Process(c *gin.Context) {
	var req processWebsitesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.URLs) == 0 {
		RespondError(c, http.StatusBadRequest, "missing_urls", errors.New("urls are required"))
		return
	}
	limit := req.TotalRows
	if limit <= 0 {
		limit = len(req.URLs)
	}

	sites := h.websites.ProcessWebsites(c.Request.Context(), req.URLs, limit, req.UpdateSummary, nil)

	out := make([]siteResponse, 0, len(sites))
	for _, site := range sites {
		resp := siteResponse{URL: site.URL, Summary: site.Summary, Cached: site.Cached}
		if site.Err != nil {
			resp.Error = site.Err.Error()
		}
		out = append(out, resp)
	}
	RespondOK(c, gin.H{"data": out})
}

type generatePersonalizationsRequest struct {
	UserID       uuid.UUID `json:"user_id"`
	URLs         []string  `json:"urls"`
	Template     string    `json:"template"`
	CustomPrompt string    `json:"prompt"`
}

// POST /api/websites/generate-personalizations runs one template across
// sites that already have crawl records.
func (h *WebsitesHandler) GeneratePersonalizations(c *gin.Context) {
	var req generatePersonalizationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.UserID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "missing_user_id", errors.New("user id is required"))
		return
	}
	if len(req.URLs) == 0 || req.Template == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("urls and template are required"))
		return
	}

	sites := h.websites.LoadSites(c.Request.Context(), req.URLs)
	failures := h.websites.GeneratePersonalization(c.Request.Context(), req.UserID, sites, req.Template, req.CustomPrompt)

	out := make([]gin.H, 0, len(sites))
	for _, site := range sites {
		entry := gin.H{"url": site.URL, "success": site.Valid()}
		if err, ok := failures[site.URL]; ok {
			entry["success"] = false
			entry["error"] = err.Error()
		} else if site.Err != nil {
			entry["error"] = site.Err.Error()
		}
		out = append(out, entry)
	}
	RespondOK(c, gin.H{"data": out})
}
