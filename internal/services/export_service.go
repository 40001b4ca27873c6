package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/repos"
	"github.com/outboundiq/personalize-backend/internal/types"
)

// ErrInsufficientCredits rejects a submission before any job row exists.
var ErrInsufficientCredits = errors.New("insufficient credits")

const (
	noSummaryFound         = "No Summary Found"
	noPersonalizationFound = "No Personalization Found"
)

// urlColumns are the spreadsheet headers probed, in order, for a row's URL.
var urlColumns = []string{"Website", "website", "URL", "url"}

// ExportService owns the export job lifecycle: submission validation, the
// async crawl/personalization pipeline, final row assembly, and the credit
// debit. Submission returns as soon as the job row exists; everything after
// is observable only through job polling.
type ExportService interface {
	ProcessExport(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, selectedTemplates []string, startRow int, maxRows int) (uuid.UUID, error)
	GetJobStatus(ctx context.Context, jobID uuid.UUID) (*types.ExportJob, error)
}

type exportService struct {
	log      *logger.Logger
	files    repos.FileUploadRepo
	jobs     repos.ExportJobRepo
	crawls   repos.WebsiteCrawlRepo
	websites WebsiteService
	store    PersonalizationStore
	credits  CreditService

	// background is the parent context for async processing; it outlives the
	// submitting HTTP request.
	background context.Context
}

func NewExportService(
	files repos.FileUploadRepo,
	jobs repos.ExportJobRepo,
	crawls repos.WebsiteCrawlRepo,
	websites WebsiteService,
	store PersonalizationStore,
	credits CreditService,
	baseLog *logger.Logger,
) ExportService {
	return &exportService{
		log:        baseLog.With("service", "ExportService"),
		files:      files,
		jobs:       jobs,
		crawls:     crawls,
		websites:   websites,
		store:      store,
		credits:    credits,
		background: context.Background(),
	}
}

// rowURL probes the fixed column-name candidates for a row's website URL.
func rowURL(row map[string]interface{}) string {
	for _, col := range urlColumns {
		if v, ok := row[col]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func (s *exportService) ProcessExport(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, selectedTemplates []string, startRow int, maxRows int) (uuid.UUID, error) {
	if userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("missing user id")
	}
	if fileID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("missing file id")
	}
	if len(selectedTemplates) == 0 {
		return uuid.Nil, fmt.Errorf("missing selected templates")
	}

	upload, err := s.files.GetByID(ctx, nil, fileID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load file upload: %w", err)
	}
	if upload == nil || len(upload.Data) == 0 {
		return uuid.Nil, fmt.Errorf("no file data found")
	}

	var allRows []map[string]interface{}
	if err := json.Unmarshal(upload.Data, &allRows); err != nil {
		return uuid.Nil, fmt.Errorf("decode file rows: %w", err)
	}

	if startRow < 0 {
		startRow = 0
	}
	if startRow >= len(allRows) {
		return uuid.Nil, ErrNoData
	}
	end := len(allRows)
	if maxRows > 0 && startRow+maxRows < end {
		end = startRow + maxRows
	}
	selectedRows := allRows[startRow:end]

	// Distinct normalized URLs, first-seen order. Rows without a resolvable
	// URL stay in the row window but contribute nothing here.
	var websiteURLs []string
	seen := make(map[string]bool)
	for _, row := range selectedRows {
		raw := rowURL(row)
		if raw == "" {
			continue
		}
		normalized := NormalizeURL(raw)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		websiteURLs = append(websiteURLs, normalized)
	}
	if len(websiteURLs) == 0 {
		return uuid.Nil, ErrNoData
	}

	if !s.credits.CheckAvailable(ctx, userID, len(selectedRows)) {
		return uuid.Nil, ErrInsufficientCredits
	}

	templatesJSON, _ := json.Marshal(selectedTemplates)
	urlsJSON, _ := json.Marshal(websiteURLs)
	job := &types.ExportJob{
		ID:                uuid.New(),
		UserID:            userID,
		FileID:            fileID,
		SelectedTemplates: datatypes.JSON(templatesJSON),
		WebsiteURLs:       datatypes.JSON(urlsJSON),
		TotalRows:         len(selectedRows),
		ProcessedRows:     0,
		Status:            types.ExportStatusProcessing,
		CreatedAt:         time.Now(),
	}
	if _, err := s.jobs.Create(ctx, nil, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to initialize export: %w", err)
	}

	go s.processExportAsync(job.ID, userID, selectedRows, websiteURLs, selectedTemplates)

	return job.ID, nil
}

// processExportAsync is the supervised completion path. Any error or panic
// here marks the job failed with the captured message; nothing propagates to
// the submitting caller.
func (s *exportService) processExportAsync(jobID uuid.UUID, userID uuid.UUID, selectedRows []map[string]interface{}, websiteURLs []string, selectedTemplates []string) {
	ctx := s.background

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Export processing panicked", "job_id", jobID, "panic", r)
			s.failJob(ctx, jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := s.runPipeline(ctx, jobID, userID, selectedRows, websiteURLs, selectedTemplates); err != nil {
		s.log.Error("Export processing error", "job_id", jobID, "error", err)
		s.failJob(ctx, jobID, err.Error())
	}
}

func (s *exportService) runPipeline(ctx context.Context, jobID uuid.UUID, userID uuid.UUID, selectedRows []map[string]interface{}, websiteURLs []string, selectedTemplates []string) error {
	progress := func(done int) {
		if err := s.jobs.BumpProcessedRows(ctx, nil, jobID, done); err != nil {
			s.log.Warn("Failed to update job progress", "job_id", jobID, "error", err)
		}
	}

	sites := s.websites.ProcessWebsites(ctx, websiteURLs, len(websiteURLs), false, progress)
	s.websites.ProcessPersonalizations(ctx, userID, sites, selectedTemplates, progress)

	rowData, err := s.assembleRows(ctx, userID, selectedRows, selectedTemplates)
	if err != nil {
		return err
	}

	rowJSON, err := json.Marshal(rowData)
	if err != nil {
		return fmt.Errorf("encode row data: %w", err)
	}
	if err := s.jobs.UpdateFields(ctx, nil, jobID, map[string]interface{}{
		"row_data":       datatypes.JSON(rowJSON),
		"processed_rows": len(rowData),
		"status":         types.ExportStatusCompleted,
		"credits_used":   len(rowData),
	}); err != nil {
		return fmt.Errorf("finalize export job: %w", err)
	}

	// Debit only after the completed row data is durably written; a failed
	// job therefore never costs credits.
	reason := fmt.Sprintf("Export job %s: %d rows processed", jobID, len(rowData))
	if !s.credits.Debit(ctx, userID, len(rowData), reason) {
		s.log.Warn("Credit debit failed after completed export", "job_id", jobID, "user_id", userID)
	}

	s.log.Info("Export completed", "job_id", jobID, "rows", len(rowData))
	return nil
}

// assembleRows builds the final export table: the crawl summary plus the
// personalization subset restricted to the selected templates. Crawl rows
// are fetched in one batched read keyed by normalized URL. Placeholders mark
// rows whose URL never produced a crawl record or a personalization entry.
func (s *exportService) assembleRows(ctx context.Context, userID uuid.UUID, selectedRows []map[string]interface{}, selectedTemplates []string) ([]map[string]interface{}, error) {
	selected := make(map[string]bool, len(selectedTemplates))
	for _, t := range selectedTemplates {
		selected[t] = true
	}

	var urls []string
	seen := make(map[string]bool)
	for _, row := range selectedRows {
		url := NormalizeURL(rowURL(row))
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		urls = append(urls, url)
	}
	crawlRows, err := s.crawls.GetByURLs(ctx, nil, urls)
	if err != nil {
		return nil, fmt.Errorf("read crawl records: %w", err)
	}
	crawlByURL := make(map[string]*types.WebsiteCrawl, len(crawlRows))
	for _, row := range crawlRows {
		crawlByURL[row.URL] = row
	}

	out := make([]map[string]interface{}, 0, len(selectedRows))
	for _, row := range selectedRows {
		assembled := make(map[string]interface{}, len(row)+len(selectedTemplates)+1)
		for k, v := range row {
			assembled[k] = v
		}

		url := NormalizeURL(rowURL(row))
		var crawl *types.WebsiteCrawl
		if url != "" {
			crawl = crawlByURL[url]
		}
		if crawl == nil {
			assembled["summary"] = noSummaryFound
			for _, t := range selectedTemplates {
				assembled[t] = noPersonalizationFound
			}
			out = append(out, assembled)
			continue
		}

		assembled["summary"] = crawl.Summary

		record, err := s.store.Get(ctx, userID, url)
		if err != nil {
			return nil, fmt.Errorf("read personalization record: %w", err)
		}
		if record == nil {
			for _, t := range selectedTemplates {
				assembled[t] = noPersonalizationFound
			}
			out = append(out, assembled)
			continue
		}

		for key, value := range record.Personalizations {
			if selected[key] {
				assembled[key] = value
			}
		}
		out = append(out, assembled)
	}
	return out, nil
}

func (s *exportService) failJob(ctx context.Context, jobID uuid.UUID, message string) {
	if err := s.jobs.UpdateFields(ctx, nil, jobID, map[string]interface{}{
		"status":        types.ExportStatusFailed,
		"error_message": message,
	}); err != nil {
		s.log.Error("Failed to mark export job failed", "job_id", jobID, "error", err)
	}
}

func (s *exportService) GetJobStatus(ctx context.Context, jobID uuid.UUID) (*types.ExportJob, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id")
	}
	return s.jobs.GetByID(ctx, nil, jobID)
}
