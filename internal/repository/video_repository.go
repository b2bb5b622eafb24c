package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medlearn/lms-api/internal/models"
)

const videoColumns = `v.id, v.subject_id, v.title, v.description, v.file_key, v.file_name,
       v.file_size_bytes, v.mime_type, v.processing_status, v.hls_key, v.thumbnail_key,
       v.duration_seconds, v.uploaded_by, v.is_active, v.created_at, v.updated_at`

// VideoRepository handles video content persistence.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository constructs the repository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a confirmed video. New rows always start pending with no
// playable artifacts. The insert is conditional on file_key uniqueness.
func (r *VideoRepository) Create(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.ProcessingStatus == "" {
		video.ProcessingStatus = models.ProcessingPending
	}
	video.IsActive = true
	now := time.Now().UTC()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now

	const query = `INSERT INTO videos
	(id, subject_id, title, description, file_key, file_name, file_size_bytes, mime_type, processing_status, hls_key, thumbnail_key, duration_seconds, uploaded_by, is_active, created_at, updated_at)
	VALUES (:id, :subject_id, :title, :description, :file_key, :file_name, :file_size_bytes, :mime_type, :processing_status, :hls_key, :thumbnail_key, :duration_seconds, :uploaded_by, :is_active, :created_at, :updated_at)
	ON CONFLICT (file_key) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, video)
	if err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check video insert rows: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateFileKey
	}
	return nil
}

// GetByID retrieves one video regardless of active state.
func (r *VideoRepository) GetByID(ctx context.Context, id string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos v WHERE v.id = $1`
	var video models.Video
	if err := r.db.GetContext(ctx, &video, query, id); err != nil {
		return nil, err
	}
	return &video, nil
}

// ListBySubject returns active videos with uploader names. When completedOnly
// is set, only fully processed rows are returned; staff listings pass false so
// the pipeline state stays visible.
func (r *VideoRepository) ListBySubject(ctx context.Context, filter models.ContentFilter, search string, completedOnly bool) ([]models.VideoWithUploader, int64, error) {
	args := []interface{}{filter.SubjectID}
	conditions := []string{"v.subject_id = $1", "v.is_active = TRUE"}

	if completedOnly {
		args = append(args, models.ProcessingCompleted)
		conditions = append(conditions, fmt.Sprintf("v.processing_status = $%d", len(args)))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(v.title ILIKE $%d OR v.description ILIKE $%d)", len(args), len(args)))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM videos v"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT ` + videoColumns + `, u.full_name AS uploader_name
	FROM videos v
	JOIN users u ON u.id = v.uploaded_by` + where +
		fmt.Sprintf(" ORDER BY v.created_at DESC LIMIT %d OFFSET %d", limit, offset)

	var videos []models.VideoWithUploader
	if err := r.db.SelectContext(ctx, &videos, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}
	return videos, total, nil
}

// SoftDelete marks a video inactive. Storage objects are never removed here.
func (r *VideoRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE videos SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active = TRUE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete video: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check video delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateProcessing records transcoder output for a video. Nothing inside this
// service calls it; the external pipeline does once artifacts exist.
func (r *VideoRepository) UpdateProcessing(ctx context.Context, id string, status models.ProcessingStatus, hlsKey, thumbnailKey *string, durationSeconds *int) error {
	const query = `UPDATE videos SET processing_status = $2, hls_key = $3, thumbnail_key = $4, duration_seconds = $5, updated_at = $6
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, hlsKey, thumbnailKey, durationSeconds, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update video processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check video processing rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActiveByDepartment returns a department's active videos for reporting.
func (r *VideoRepository) ListActiveByDepartment(ctx context.Context, departmentID string) ([]models.VideoWithUploader, error) {
	query := `SELECT ` + videoColumns + `, u.full_name AS uploader_name
	FROM videos v
	JOIN users u ON u.id = v.uploaded_by
	JOIN subjects s ON s.id = v.subject_id
	JOIN courses c ON c.id = s.course_id
	WHERE c.department_id = $1 AND v.is_active = TRUE
	ORDER BY v.created_at DESC`
	var videos []models.VideoWithUploader
	if err := r.db.SelectContext(ctx, &videos, query, departmentID); err != nil {
		return nil, fmt.Errorf("list department videos: %w", err)
	}
	return videos, nil
}
