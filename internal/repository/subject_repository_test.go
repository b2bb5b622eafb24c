package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/medlearn/lms-api/internal/models"
)

func subjectDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "code", "course_id", "created_at", "updated_at", "course_name", "year_level", "department_id", "department_code"}).
		AddRow("subj-1", "Cardiology", "CARD101", "course-1", time.Now(), time.Now(), "MBBS Year 2", 2, "dept-anat", "ANAT")
}

func TestSubjectRepositoryGetDetail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.name, s.code")).
		WithArgs("subj-1").
		WillReturnRows(subjectDetailRows())

	detail, err := repo.GetDetail(context.Background(), "subj-1")
	require.NoError(t, err)
	require.Equal(t, "dept-anat", detail.DepartmentID)
	require.Equal(t, "ANAT", detail.DepartmentCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListScopedToDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	dept := "dept-anat"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM subjects")).
		WithArgs(dept).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.name, s.code")).
		WithArgs(dept).
		WillReturnRows(subjectDetailRows())

	subjects, total, err := repo.List(context.Background(), models.SubjectFilter{DepartmentID: &dept, Page: 1, Limit: 20})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, subjects, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subjects")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	subject := &models.Subject{Name: "Cardiology", Code: "CARD101", CourseID: "course-1"}
	require.NoError(t, repo.Create(context.Background(), subject))
	require.NotEmpty(t, subject.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreateDuplicateCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subjects")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	subject := &models.Subject{Name: "Cardiology II", Code: "CARD101", CourseID: "course-1"}
	err := repo.Create(context.Background(), subject)
	require.ErrorIs(t, err, ErrDuplicateSubjectCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryUpdateDuplicateCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subjects SET")).
		WillReturnError(&pq.Error{Code: "23505"})

	subject := &models.Subject{ID: "subj-1", Name: "Cardiology", Code: "CARD102", CourseID: "course-1"}
	err := repo.Update(context.Background(), subject)
	require.ErrorIs(t, err, ErrDuplicateSubjectCode)
	require.NoError(t, mock.ExpectationsWereMet())
}
