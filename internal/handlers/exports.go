package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/outboundiq/personalize-backend/internal/services"
)

type ExportsHandler struct {
	exports services.ExportService
}

func NewExportsHandler(exports services.ExportService) *ExportsHandler {
	return &ExportsHandler{exports: exports}
}

type createExportRequest struct {
	UserID            uuid.UUID `json:"user_id"`
	FileID            uuid.UUID `json:"file_id"`
	SelectedTemplates []string  `json:"selected_templates"`
	StartRow          int       `json:"start_row"`
	MaxRows           int       `json:"max_rows"`
}

// POST /api/exports/create
func (h *ExportsHandler) Create(c *gin.Context) {
	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.UserID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "missing_user_id", errors.New("user id is required"))
		return
	}
	if req.FileID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "missing_file_id", errors.New("file id is required"))
		return
	}
	if len(req.SelectedTemplates) == 0 {
		RespondError(c, http.StatusBadRequest, "missing_templates", errors.New("selected templates are required"))
		return
	}
	builtin := make(map[string]bool)
	for _, name := range services.BuiltinTemplates() {
		builtin[name] = true
	}
	for _, name := range req.SelectedTemplates {
		if !builtin[name] && !strings.HasPrefix(name, services.CustomTemplatePrefix) {
			RespondError(c, http.StatusBadRequest, "invalid_template", fmt.Errorf("unknown template: %s", name))
			return
		}
	}

	jobID, err := h.exports.ProcessExport(c.Request.Context(), req.UserID, req.FileID, req.SelectedTemplates, req.StartRow, req.MaxRows)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoData):
			RespondError(c, http.StatusBadRequest, "nothing_to_export", err)
		case errors.Is(err, services.ErrInsufficientCredits):
			RespondError(c, http.StatusPaymentRequired, "insufficient_credits", err)
		default:
			RespondError(c, http.StatusInternalServerError, "export_failed", err)
		}
		return
	}

	RespondOK(c, gin.H{
		"message": "Export process initiated successfully",
		"data":    gin.H{"job_id": jobID},
	})
}

// GET /api/exports/:id/status
func (h *ExportsHandler) Status(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.exports.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "status_lookup_failed", err)
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", errors.New("export job not found"))
		return
	}
	RespondOK(c, gin.H{"data": job})
}
