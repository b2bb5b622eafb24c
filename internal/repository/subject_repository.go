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
	"github.com/lib/pq"

	"github.com/medlearn/lms-api/internal/models"
)

// ErrDuplicateSubjectCode signals that the course already has a subject with
// this code. The (course_id, code) unique constraint backs the invariant.
var ErrDuplicateSubjectCode = errors.New("subject code already used in course")

const subjectDetailColumns = `s.id, s.name, s.code, s.course_id, s.created_at, s.updated_at,
       c.name AS course_name, c.year_level, c.department_id, d.code AS department_code`

// SubjectRepository handles subject persistence. Detail queries join through
// the owning course to the department, which access decisions depend on.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Create stores a new subject. The insert is conditional on the
// (course_id, code) unique constraint; a duplicate code in the same course
// returns ErrDuplicateSubjectCode.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, name, code, course_id, created_at, updated_at)
	VALUES (:id, :name, :code, :course_id, :created_at, :updated_at)
	ON CONFLICT (course_id, code) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check subject insert rows: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateSubjectCode
	}
	return nil
}

// GetDetail retrieves one subject joined with its course and department.
func (r *SubjectRepository) GetDetail(ctx context.Context, id string) (*models.SubjectDetail, error) {
	query := `SELECT ` + subjectDetailColumns + `
	FROM subjects s
	JOIN courses c ON c.id = s.course_id
	JOIN departments d ON d.id = c.department_id
	WHERE s.id = $1`
	var detail models.SubjectDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns subjects matching the filter joined with course and department.
// Passing a department id scopes results; a nil department lists everything.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int64, error) {
	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)

	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("c.department_id = $%d", len(args)))
	}
	if filter.CourseID != nil {
		args = append(args, *filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM subjects s JOIN courses c ON c.id = s.course_id` + where
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
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

	query := `SELECT ` + subjectDetailColumns + `
	FROM subjects s
	JOIN courses c ON c.id = s.course_id
	JOIN departments d ON d.id = c.department_id` + where +
		fmt.Sprintf(" ORDER BY c.year_level ASC, s.name ASC LIMIT %d OFFSET %d", limit, offset)

	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, total, nil
}

// Update persists mutable subject fields. Renaming a code onto one already
// used in the course returns ErrDuplicateSubjectCode.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, code = :code, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateSubjectCode
		}
		return fmt.Errorf("update subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check subject update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
