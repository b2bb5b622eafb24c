package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medlearn/lms-api/internal/models"
)

// ErrDuplicateFileKey signals that a content row for the storage key already
// exists. The unique constraint on file_key makes confirmation a conditional
// insert, so a double confirm can never create two rows.
var ErrDuplicateFileKey = errors.New("file key already recorded")

const noteColumns = `n.id, n.subject_id, n.title, n.description, n.file_key, n.file_name,
       n.file_size_bytes, n.file_type, n.mime_type, n.version, n.uploaded_by, n.is_active, n.created_at, n.updated_at`

// NoteRepository handles document content persistence.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs the repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a confirmed note. The insert is conditional on file_key
// uniqueness; a conflicting key returns ErrDuplicateFileKey.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.Version == 0 {
		note.Version = 1
	}
	note.IsActive = true
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	const query = `INSERT INTO notes
	(id, subject_id, title, description, file_key, file_name, file_size_bytes, file_type, mime_type, version, uploaded_by, is_active, created_at, updated_at)
	VALUES (:id, :subject_id, :title, :description, :file_key, :file_name, :file_size_bytes, :file_type, :mime_type, :version, :uploaded_by, :is_active, :created_at, :updated_at)
	ON CONFLICT (file_key) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, note)
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check note insert rows: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateFileKey
	}
	return nil
}

// GetByID retrieves one note regardless of active state.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes n WHERE n.id = $1`
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, id); err != nil {
		return nil, err
	}
	return &note, nil
}

// ListBySubject returns active notes with uploader names, optionally matching
// a case-insensitive title/description search, paginated.
func (r *NoteRepository) ListBySubject(ctx context.Context, filter models.ContentFilter, search string) ([]models.NoteWithUploader, int64, error) {
	args := []interface{}{filter.SubjectID}
	conditions := []string{"n.subject_id = $1", "n.is_active = TRUE"}

	if search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(n.title ILIKE $%d OR n.description ILIKE $%d)", len(args), len(args)))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notes n"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
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

	query := `SELECT ` + noteColumns + `, u.full_name AS uploader_name
	FROM notes n
	JOIN users u ON u.id = n.uploaded_by` + where +
		fmt.Sprintf(" ORDER BY n.created_at DESC LIMIT %d OFFSET %d", limit, offset)

	var notes []models.NoteWithUploader
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	return notes, total, nil
}

// SoftDelete marks a note inactive. Storage objects are never removed here.
func (r *NoteRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE notes SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active = TRUE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check note delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActiveByDepartment returns a department's active notes for reporting.
func (r *NoteRepository) ListActiveByDepartment(ctx context.Context, departmentID string) ([]models.NoteWithUploader, error) {
	query := `SELECT ` + noteColumns + `, u.full_name AS uploader_name
	FROM notes n
	JOIN users u ON u.id = n.uploaded_by
	JOIN subjects s ON s.id = n.subject_id
	JOIN courses c ON c.id = s.course_id
	WHERE c.department_id = $1 AND n.is_active = TRUE
	ORDER BY n.created_at DESC`
	var notes []models.NoteWithUploader
	if err := r.db.SelectContext(ctx, &notes, query, departmentID); err != nil {
		return nil, fmt.Errorf("list department notes: %w", err)
	}
	return notes, nil
}
