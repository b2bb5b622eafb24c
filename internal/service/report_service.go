package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medlearn/lms-api/internal/dto"
	"github.com/medlearn/lms-api/internal/models"
	"github.com/medlearn/lms-api/internal/policy"
	"github.com/medlearn/lms-api/pkg/config"
	appErrors "github.com/medlearn/lms-api/pkg/errors"
	"github.com/medlearn/lms-api/pkg/export"
	"github.com/medlearn/lms-api/pkg/jobs"
)

type reportStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	ListByRequester(ctx context.Context, userID string, limit int) ([]models.ReportJob, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, message string) error
}

type departmentNoteLister interface {
	ListActiveByDepartment(ctx context.Context, departmentID string) ([]models.NoteWithUploader, error)
}

type departmentVideoLister interface {
	ListActiveByDepartment(ctx context.Context, departmentID string) ([]models.VideoWithUploader, error)
}

type reportFileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type reportSigner interface {
	Generate(reportID, relPath string) (string, time.Time, error)
	Parse(token string) (reportID, relPath string, expiresAt time.Time, err error)
}

// ReportDownload bundles an open report file with its metadata.
type ReportDownload struct {
	File     *os.File
	Filename string
	MimeType string
}

// ReportService generates department content summaries asynchronously.
// Rendered files stay on local disk; downloads go through HMAC signed tokens.
type ReportService struct {
	reports     reportStore
	notes       departmentNoteLister
	videos      departmentVideoLister
	departments departmentResolver
	files       reportFileStore
	signer      reportSigner
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	queue       *jobs.Queue
	logger      *zap.Logger
	cfg         config.ReportsConfig
	apiPrefix   string
}

// NewReportService constructs the service and its worker queue. Call Start
// before accepting requests and Stop on shutdown.
func NewReportService(reports reportStore, notes departmentNoteLister, videos departmentVideoLister, departments departmentResolver, files reportFileStore, signer reportSigner, logger *zap.Logger, cfg config.ReportsConfig, apiPrefix string) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	s := &ReportService{
		reports:     reports,
		notes:       notes,
		videos:      videos,
		departments: departments,
		files:       files,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		cfg:         cfg,
		apiPrefix:   strings.TrimRight(apiPrefix, "/"),
	}
	s.queue = jobs.NewQueue("reports", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the report workers.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the report workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Request queues a content summary export. Heads of department may only
// export their own department.
func (s *ReportService) Request(ctx context.Context, req dto.CreateReportRequest, actor *models.JWTClaims) (*models.ReportJob, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !policy.CanRequestReports(actor.Role) {
		return nil, appErrors.ErrForbidden
	}
	if actor.Role == models.RoleHOD {
		if actor.DepartmentID == nil || *actor.DepartmentID != req.DepartmentID {
			return nil, appErrors.ErrForbidden
		}
	}
	if _, err := s.departments.GetByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve department")
	}

	job := &models.ReportJob{
		Type:         models.ReportContentSummary,
		Format:       req.Format,
		Status:       models.ReportPending,
		DepartmentID: req.DepartmentID,
		RequestedBy:  actor.UserID,
	}
	if err := s.reports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		s.logger.Error("failed to enqueue report job", zap.String("report_id", job.ID), zap.Error(err))
		_ = s.reports.MarkFailed(ctx, job.ID, "queue unavailable")
		return nil, appErrors.Clone(appErrors.ErrInternal, "report queue unavailable")
	}
	return job, nil
}

// Get returns one report job with a signed download URL once completed.
// Visible to the requester, admins and principals.
func (s *ReportService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ReportResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	job, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if !actor.Role.Privileged() && job.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}

	resp := &dto.ReportResponse{ReportJob: *job}
	if job.Status == models.ReportCompleted && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign report download", zap.String("report_id", job.ID), zap.Error(err))
		} else {
			url := fmt.Sprintf("%s/export/%s", s.apiPrefix, token)
			resp.DownloadURL = &url
			resp.URLExpires = &expiresAt
		}
	}
	return resp, nil
}

// ListMine returns the actor's report jobs.
func (s *ReportService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.ReportJob, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	jobsList, err := s.reports.ListByRequester(ctx, actor.UserID, 50)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return jobsList, nil
}

// Download validates a signed token and opens the rendered file. The token
// itself is the credential; no session is required.
func (s *ReportService) Download(ctx context.Context, token string) (*ReportDownload, error) {
	reportID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if job.FilePath == nil || *job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}
	return &ReportDownload{
		File:     file,
		Filename: filepath.Base(relPath),
		MimeType: mimeForReportFormat(job.Format),
	}, nil
}

func (s *ReportService) process(ctx context.Context, job jobs.Job) error {
	if err := s.reports.MarkRunning(ctx, job.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already picked up or terminal; nothing to do.
			return nil
		}
		return fmt.Errorf("mark report running: %w", err)
	}
	report, err := s.reports.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load report %s: %w", job.ID, err)
	}

	data, err := s.buildDataset(ctx, report.DepartmentID)
	if err != nil {
		_ = s.reports.MarkFailed(ctx, report.ID, err.Error())
		return fmt.Errorf("build report dataset: %w", err)
	}

	var rendered []byte
	switch report.Format {
	case models.ReportFormatPDF:
		rendered, err = s.pdf.Render(data, "Department Content Summary")
	default:
		rendered, err = s.csv.Render(data)
	}
	if err != nil {
		_ = s.reports.MarkFailed(ctx, report.ID, err.Error())
		return fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("reports/%s.%s", report.ID, report.Format)
	path, err := s.files.Save(filename, rendered)
	if err != nil {
		_ = s.reports.MarkFailed(ctx, report.ID, err.Error())
		return fmt.Errorf("save report file: %w", err)
	}
	if err := s.reports.MarkCompleted(ctx, report.ID, path); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	s.logger.Info("report completed", zap.String("report_id", report.ID), zap.String("file", path))
	return nil
}

var reportHeaders = []string{"Kind", "Title", "Subject", "Uploader", "Size Bytes", "Status", "Uploaded At"}

func (s *ReportService) buildDataset(ctx context.Context, departmentID string) (export.Dataset, error) {
	notes, err := s.notes.ListActiveByDepartment(ctx, departmentID)
	if err != nil {
		return export.Dataset{}, err
	}
	videos, err := s.videos.ListActiveByDepartment(ctx, departmentID)
	if err != nil {
		return export.Dataset{}, err
	}

	rows := make([]map[string]string, 0, len(notes)+len(videos))
	for _, note := range notes {
		rows = append(rows, map[string]string{
			"Kind":        "note",
			"Title":       note.Title,
			"Subject":     note.SubjectID,
			"Uploader":    note.UploaderName,
			"Size Bytes":  fmt.Sprintf("%d", note.FileSizeBytes),
			"Status":      "ready",
			"Uploaded At": note.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, video := range videos {
		rows = append(rows, map[string]string{
			"Kind":        "video",
			"Title":       video.Title,
			"Subject":     video.SubjectID,
			"Uploader":    video.UploaderName,
			"Size Bytes":  fmt.Sprintf("%d", video.FileSizeBytes),
			"Status":      string(video.ProcessingStatus),
			"Uploaded At": video.CreatedAt.Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: reportHeaders, Rows: rows}, nil
}

func mimeForReportFormat(format models.ReportFormat) string {
	if format == models.ReportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}
