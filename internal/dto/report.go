package dto

import (
	"time"

	"github.com/medlearn/lms-api/internal/models"
)

// CreateReportRequest queues a content summary export for a department.
type CreateReportRequest struct {
	DepartmentID string              `json:"department_id" binding:"required,uuid"`
	Format       models.ReportFormat `json:"format" binding:"required,oneof=csv pdf"`
}

// ReportResponse describes a report job, including a signed download URL once
// the file is ready.
type ReportResponse struct {
	models.ReportJob
	DownloadURL *string    `json:"download_url,omitempty"`
	URLExpires  *time.Time `json:"url_expires_at,omitempty"`
}
