package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medlearn/lms-api/internal/dto"
	"github.com/medlearn/lms-api/internal/models"
	"github.com/medlearn/lms-api/pkg/config"
	appErrors "github.com/medlearn/lms-api/pkg/errors"
	"github.com/medlearn/lms-api/pkg/jobs"
	"github.com/medlearn/lms-api/pkg/storage"
)

type stubReports struct {
	jobs map[string]*models.ReportJob
	seq  int
}

func newStubReports() *stubReports {
	return &stubReports{jobs: map[string]*models.ReportJob{}}
}

func (s *stubReports) Create(_ context.Context, job *models.ReportJob) error {
	s.seq++
	job.ID = fmt.Sprintf("report-%d", s.seq)
	job.CreatedAt = time.Now().UTC()
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

func (s *stubReports) GetByID(_ context.Context, id string) (*models.ReportJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (s *stubReports) ListByRequester(_ context.Context, userID string, _ int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range s.jobs {
		if job.RequestedBy == userID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (s *stubReports) MarkRunning(_ context.Context, id string) error {
	job, ok := s.jobs[id]
	if !ok || job.Status != models.ReportPending {
		return sql.ErrNoRows
	}
	job.Status = models.ReportRunning
	return nil
}

func (s *stubReports) MarkCompleted(_ context.Context, id, filePath string) error {
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ReportCompleted
	job.FilePath = &filePath
	return nil
}

func (s *stubReports) MarkFailed(_ context.Context, id, message string) error {
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ReportFailed
	job.ErrorMessage = &message
	return nil
}

type stubDeptNotes struct {
	notes []models.NoteWithUploader
}

func (s *stubDeptNotes) ListActiveByDepartment(_ context.Context, _ string) ([]models.NoteWithUploader, error) {
	return s.notes, nil
}

type stubDeptVideos struct {
	videos []models.VideoWithUploader
}

func (s *stubDeptVideos) ListActiveByDepartment(_ context.Context, _ string) ([]models.VideoWithUploader, error) {
	return s.videos, nil
}

type stubDepartments struct {
	dept *models.Department
	err  error
}

func (s *stubDepartments) GetByID(_ context.Context, _ string) (*models.Department, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.dept, nil
}

func reportsConfig() config.ReportsConfig {
	return config.ReportsConfig{
		Enabled:           true,
		SignedURLSecret:   "report-secret",
		SignedURLTTL:      time.Hour,
		WorkerConcurrency: 1,
		WorkerRetries:     1,
	}
}

func newReportService(t *testing.T, reports *stubReports) *ReportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("report-secret", time.Hour)
	notes := &stubDeptNotes{notes: []models.NoteWithUploader{{
		Note: models.Note{
			SubjectID:     "subj-1",
			Title:         "Cardiac cycle",
			FileSizeBytes: 2048,
			CreatedAt:     time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		},
		UploaderName: "Dr. Rao",
	}}}
	videos := &stubDeptVideos{videos: []models.VideoWithUploader{{
		Video: models.Video{
			SubjectID:        "subj-1",
			Title:            "Valve surgery",
			FileSizeBytes:    1 << 20,
			ProcessingStatus: models.ProcessingPending,
			CreatedAt:        time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
		},
		UploaderName: "Dr. Rao",
	}}}
	departments := &stubDepartments{dept: &models.Department{ID: "dept-anat", Name: "Anatomy", Code: "ANAT"}}
	return NewReportService(reports, notes, videos, departments, files, signer, nil, reportsConfig(), "/api/v1")
}

func TestReportRequestStudentForbidden(t *testing.T) {
	svc := newReportService(t, newStubReports())

	_, err := svc.Request(context.Background(), dto.CreateReportRequest{DepartmentID: "dept-anat", Format: models.ReportFormatCSV}, claimsFor(models.RoleStudent, strp("dept-anat")))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportRequestHODOwnDepartmentOnly(t *testing.T) {
	svc := newReportService(t, newStubReports())

	_, err := svc.Request(context.Background(), dto.CreateReportRequest{DepartmentID: "dept-anat", Format: models.ReportFormatCSV}, claimsFor(models.RoleHOD, strp("dept-phys")))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportRequestEnqueuesPendingJob(t *testing.T) {
	reports := newStubReports()
	svc := newReportService(t, reports)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Request(ctx, dto.CreateReportRequest{DepartmentID: "dept-anat", Format: models.ReportFormatCSV}, claimsFor(models.RoleAdmin, nil))
	require.NoError(t, err)
	require.Equal(t, models.ReportPending, job.Status)
	require.NotEmpty(t, job.ID)
}

func TestReportProcessRendersCSVAndSignsDownload(t *testing.T) {
	reports := newStubReports()
	svc := newReportService(t, reports)

	admin := claimsFor(models.RoleAdmin, nil)
	stored := &models.ReportJob{
		Type:         models.ReportContentSummary,
		Format:       models.ReportFormatCSV,
		Status:       models.ReportPending,
		DepartmentID: "dept-anat",
		RequestedBy:  admin.UserID,
	}
	require.NoError(t, reports.Create(context.Background(), stored))

	require.NoError(t, svc.process(context.Background(), jobs.Job{ID: stored.ID}))

	resp, err := svc.Get(context.Background(), stored.ID, admin)
	require.NoError(t, err)
	require.Equal(t, models.ReportCompleted, resp.Status)
	require.NotNil(t, resp.DownloadURL)
	require.True(t, strings.HasPrefix(*resp.DownloadURL, "/api/v1/export/"))

	token := strings.TrimPrefix(*resp.DownloadURL, "/api/v1/export/")
	download, err := svc.Download(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()
	require.Equal(t, "text/csv", download.MimeType)

	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	require.Contains(t, string(content), "Cardiac cycle")
	require.Contains(t, string(content), "pending")
}

func TestReportProcessSkipsAlreadyRunning(t *testing.T) {
	reports := newStubReports()
	svc := newReportService(t, reports)

	stored := &models.ReportJob{Status: models.ReportPending, Format: models.ReportFormatCSV, DepartmentID: "dept-anat", RequestedBy: "user-1"}
	require.NoError(t, reports.Create(context.Background(), stored))
	reports.jobs[stored.ID].Status = models.ReportRunning

	require.NoError(t, svc.process(context.Background(), jobs.Job{ID: stored.ID}))
	require.Equal(t, models.ReportRunning, reports.jobs[stored.ID].Status)
}

func TestReportGetOtherRequesterForbidden(t *testing.T) {
	reports := newStubReports()
	svc := newReportService(t, reports)

	stored := &models.ReportJob{Status: models.ReportPending, Format: models.ReportFormatCSV, DepartmentID: "dept-anat", RequestedBy: "someone-else"}
	require.NoError(t, reports.Create(context.Background(), stored))

	_, err := svc.Get(context.Background(), stored.ID, claimsFor(models.RoleFaculty, strp("dept-anat")))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportDownloadTokenMismatch(t *testing.T) {
	reports := newStubReports()
	svc := newReportService(t, reports)

	stored := &models.ReportJob{Status: models.ReportPending, Format: models.ReportFormatCSV, DepartmentID: "dept-anat", RequestedBy: "user-1"}
	require.NoError(t, reports.Create(context.Background(), stored))
	require.NoError(t, reports.MarkCompleted(context.Background(), stored.ID, "reports/real.csv"))

	signer := storage.NewSignedURLSigner("report-secret", time.Hour)
	token, _, err := signer.Generate(stored.ID, "reports/other.csv")
	require.NoError(t, err)

	_, err = svc.Download(context.Background(), token)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
