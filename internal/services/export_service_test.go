package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/repos"
	"github.com/outboundiq/personalize-backend/internal/types"
)

type exportFixture struct {
	*pipelineFixture
	files   repos.FileUploadRepo
	jobs    repos.ExportJobRepo
	users   repos.UserRepo
	txns    repos.CreditTransactionRepo
	exports ExportService
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	fx := newPipelineFixture(t)
	log := logger.NewNop()

	files := repos.NewFileUploadRepo(fx.db, log)
	jobs := repos.NewExportJobRepo(fx.db, log)
	users := repos.NewUserRepo(fx.db, log)
	txns := repos.NewCreditTransactionRepo(fx.db, log)
	credits := NewCreditService(users, txns, log)
	exports := NewExportService(files, jobs, fx.crawls, fx.websites, fx.store, credits, log)

	return &exportFixture{
		pipelineFixture: fx,
		files:           files,
		jobs:            jobs,
		users:           users,
		txns:            txns,
		exports:         exports,
	}
}

func (fx *exportFixture) seedUpload(t *testing.T, userID uuid.UUID, rows []map[string]interface{}) uuid.UUID {
	t.Helper()
	raw, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal rows: %v", err)
	}
	upload := &types.FileUpload{
		ID:        uuid.New(),
		UserID:    userID,
		Filename:  "leads.csv",
		Data:      datatypes.JSON(raw),
		RowCount:  len(rows),
		CreatedAt: time.Now(),
	}
	if _, err := fx.files.Create(context.Background(), nil, upload); err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	return upload.ID
}

func waitForJob(t *testing.T, svc ExportService, jobID uuid.UUID) *types.ExportJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.GetJobStatus(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJobStatus: %v", err)
		}
		if job != nil && job.Status != types.ExportStatusProcessing {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not leave processing state")
	return nil
}

func sampleRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"Name": "Alice", "Website": "Example.com"},
		{"Name": "Bob", "website": "https://www.example.com/"},
		{"Name": "Carol", "URL": "other.example"},
		{"Name": "Dave"},
		{"Name": "Eve", "url": "third.example"},
	}
}

func TestProcessExportValidation(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()
	userID := seedUser(t, fx.users, 100)
	fileID := fx.seedUpload(t, userID, sampleRows())

	if _, err := fx.exports.ProcessExport(ctx, uuid.Nil, fileID, []string{"intro"}, 0, 0); err == nil {
		t.Fatal("accepted nil user")
	}
	if _, err := fx.exports.ProcessExport(ctx, userID, uuid.Nil, []string{"intro"}, 0, 0); err == nil {
		t.Fatal("accepted nil file")
	}
	if _, err := fx.exports.ProcessExport(ctx, userID, fileID, nil, 0, 0); err == nil {
		t.Fatal("accepted empty template list")
	}
	if _, err := fx.exports.ProcessExport(ctx, userID, uuid.New(), []string{"intro"}, 0, 0); err == nil {
		t.Fatal("accepted unknown file")
	}
}

func TestProcessExportNoResolvableURLs(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()
	userID := seedUser(t, fx.users, 100)
	fileID := fx.seedUpload(t, userID, []map[string]interface{}{
		{"Name": "Dave"},
		{"Name": "Erin", "Website": ""},
	})

	_, err := fx.exports.ProcessExport(ctx, userID, fileID, []string{"intro"}, 0, 0)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData, got %v", err)
	}
}

func TestProcessExportStartRowPastEnd(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()
	userID := seedUser(t, fx.users, 100)
	fileID := fx.seedUpload(t, userID, sampleRows())

	_, err := fx.exports.ProcessExport(ctx, userID, fileID, []string{"intro"}, 50, 0)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData, got %v", err)
	}
}

func TestProcessExportInsufficientCredits(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()
	userID := seedUser(t, fx.users, 2) // 5 rows selected
	fileID := fx.seedUpload(t, userID, sampleRows())

	_, err := fx.exports.ProcessExport(ctx, userID, fileID, []string{"intro"}, 0, 0)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("want ErrInsufficientCredits, got %v", err)
	}
}

func TestProcessExportCompletesAndAssemblesRows(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()
	userID := seedUser(t, fx.users, 10)
	fileID := fx.seedUpload(t, userID, sampleRows())

	jobID, err := fx.exports.ProcessExport(ctx, userID, fileID, []string{"intro"}, 0, 0)
	if err != nil {
		t.Fatalf("ProcessExport: %v", err)
	}

	job := waitForJob(t, fx.exports, jobID)
	if job.Status != types.ExportStatusCompleted {
		t.Fatalf("status = %q, error = %q", job.Status, job.ErrorMessage)
	}
	if job.TotalRows != 5 || job.ProcessedRows != 5 || job.CreditsUsed != 5 {
		t.Fatalf("totals = %d/%d/%d, want 5/5/5", job.TotalRows, job.ProcessedRows, job.CreditsUsed)
	}

	var urls []string
	if err := json.Unmarshal(job.WebsiteURLs, &urls); err != nil {
		t.Fatalf("decode website urls: %v", err)
	}
	// Five rows resolve to three distinct normalized URLs: the two
	// example.com spellings collapse and the URL-less row contributes none.
	if len(urls) != 3 {
		t.Fatalf("website urls = %v, want 3", urls)
	}
	if urls[0] != "https://example.com" {
		t.Fatalf("first-seen order broken: %v", urls)
	}

	var rowData []map[string]interface{}
	if err := json.Unmarshal(job.RowData, &rowData); err != nil {
		t.Fatalf("decode row data: %v", err)
	}
	if len(rowData) != 5 {
		t.Fatalf("row data rows = %d, want 5", len(rowData))
	}

	// Rows with a crawled URL carry real output.
	if rowData[0]["summary"] == noSummaryFound || rowData[0]["summary"] == "" {
		t.Fatalf("crawled row got placeholder summary: %v", rowData[0])
	}
	if rowData[0]["intro"] == noPersonalizationFound || rowData[0]["intro"] == nil {
		t.Fatalf("crawled row got placeholder personalization: %v", rowData[0])
	}
	if rowData[0]["Name"] != "Alice" {
		t.Fatalf("original columns lost: %v", rowData[0])
	}

	// The URL-less row gets both placeholder literals.
	if rowData[3]["summary"] != noSummaryFound {
		t.Fatalf("url-less row summary = %v", rowData[3]["summary"])
	}
	if rowData[3]["intro"] != noPersonalizationFound {
		t.Fatalf("url-less row intro = %v", rowData[3]["intro"])
	}

	// Three distinct URLs, one crawl each; duplicates served from cache.
	if fx.fc.callCount() != 3 {
		t.Fatalf("provider calls = %d, want 3", fx.fc.callCount())
	}
}

func TestProcessExportDebitsAfterCompletion(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()
	userID := seedUser(t, fx.users, 10)
	fileID := fx.seedUpload(t, userID, sampleRows())

	jobID, err := fx.exports.ProcessExport(ctx, userID, fileID, []string{"intro"}, 0, 0)
	if err != nil {
		t.Fatalf("ProcessExport: %v", err)
	}
	job := waitForJob(t, fx.exports, jobID)
	if job.Status != types.ExportStatusCompleted {
		t.Fatalf("status = %q", job.Status)
	}

	user, err := fx.users.GetByID(ctx, nil, userID)
	if err != nil || user == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.Credits != 5 {
		t.Fatalf("balance = %d, want 5", user.Credits)
	}
	entries, err := fx.txns.ListByUser(ctx, nil, userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != types.CreditTxnDebit || entries[0].Amount != 5 {
		t.Fatalf("ledger = %+v", entries)
	}
	if !strings.Contains(entries[0].Reason, jobID.String()) {
		t.Fatalf("ledger reason %q missing job id", entries[0].Reason)
	}
}

func TestProcessExportWindowing(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()
	userID := seedUser(t, fx.users, 10)
	fileID := fx.seedUpload(t, userID, sampleRows())

	// Rows 1 and 2 only (Bob and Carol).
	jobID, err := fx.exports.ProcessExport(ctx, userID, fileID, []string{"intro"}, 1, 2)
	if err != nil {
		t.Fatalf("ProcessExport: %v", err)
	}
	job := waitForJob(t, fx.exports, jobID)
	if job.Status != types.ExportStatusCompleted {
		t.Fatalf("status = %q, error = %q", job.Status, job.ErrorMessage)
	}
	if job.TotalRows != 2 {
		t.Fatalf("total rows = %d, want 2", job.TotalRows)
	}

	var rowData []map[string]interface{}
	if err := json.Unmarshal(job.RowData, &rowData); err != nil {
		t.Fatalf("decode row data: %v", err)
	}
	if len(rowData) != 2 {
		t.Fatalf("row data rows = %d", len(rowData))
	}
	if rowData[0]["Name"] != "Bob" || rowData[1]["Name"] != "Carol" {
		t.Fatalf("wrong window: %v", rowData)
	}
}

func TestProcessExportCrawlFailureYieldsPlaceholders(t *testing.T) {
	fx := newExportFixture(t)
	fx.fc.failFor = map[string]string{"https://down.example": "failed to fetch page"}
	ctx := context.Background()
	userID := seedUser(t, fx.users, 10)
	fileID := fx.seedUpload(t, userID, []map[string]interface{}{
		{"Name": "Alice", "Website": "example.com"},
		{"Name": "Bob", "Website": "down.example"},
	})

	jobID, err := fx.exports.ProcessExport(ctx, userID, fileID, []string{"intro"}, 0, 0)
	if err != nil {
		t.Fatalf("ProcessExport: %v", err)
	}
	job := waitForJob(t, fx.exports, jobID)
	if job.Status != types.ExportStatusCompleted {
		t.Fatalf("one bad URL failed the whole job: %q / %q", job.Status, job.ErrorMessage)
	}

	var rowData []map[string]interface{}
	if err := json.Unmarshal(job.RowData, &rowData); err != nil {
		t.Fatalf("decode row data: %v", err)
	}
	if rowData[0]["summary"] == noSummaryFound {
		t.Fatalf("healthy row got placeholder: %v", rowData[0])
	}
	if rowData[1]["summary"] != noSummaryFound || rowData[1]["intro"] != noPersonalizationFound {
		t.Fatalf("failed row missing placeholders: %v", rowData[1])
	}
}

// failingCrawlRepo breaks the batched read used during row assembly while
// leaving the crawl pipeline's own repo untouched.
type failingCrawlRepo struct {
	repos.WebsiteCrawlRepo
}

func (r *failingCrawlRepo) GetByURLs(_ context.Context, _ *gorm.DB, _ []string) ([]*types.WebsiteCrawl, error) {
	return nil, errors.New("storage unavailable")
}

func TestProcessExportFailureMarksJobFailedWithoutDebit(t *testing.T) {
	fx := newExportFixture(t)
	log := logger.NewNop()
	credits := NewCreditService(fx.users, fx.txns, log)
	exports := NewExportService(
		fx.files, fx.jobs, &failingCrawlRepo{WebsiteCrawlRepo: fx.crawls},
		fx.websites, fx.store, credits, log,
	)
	ctx := context.Background()
	userID := seedUser(t, fx.users, 10)
	fileID := fx.seedUpload(t, userID, sampleRows())

	jobID, err := exports.ProcessExport(ctx, userID, fileID, []string{"intro"}, 0, 0)
	if err != nil {
		t.Fatalf("ProcessExport: %v", err)
	}

	job := waitForJob(t, exports, jobID)
	if job.Status != types.ExportStatusFailed {
		t.Fatalf("status = %q, want %q", job.Status, types.ExportStatusFailed)
	}
	if !strings.Contains(job.ErrorMessage, "read crawl records") {
		t.Fatalf("error_message = %q", job.ErrorMessage)
	}
	if job.CreditsUsed != 0 || len(job.RowData) != 0 {
		t.Fatalf("failed job recorded output: credits_used=%d row_data=%s", job.CreditsUsed, job.RowData)
	}

	// A failed job never costs credits: balance untouched, no ledger rows.
	user, err := fx.users.GetByID(ctx, nil, userID)
	if err != nil || user == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.Credits != 10 {
		t.Fatalf("balance = %d, want 10", user.Credits)
	}
	entries, err := fx.txns.ListByUser(ctx, nil, userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed job wrote %d ledger entries", len(entries))
	}
}

func TestGetJobStatusUnknownJob(t *testing.T) {
	fx := newExportFixture(t)
	job, err := fx.exports.GetJobStatus(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetJobStatus: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for unknown job, got %+v", job)
	}
}
