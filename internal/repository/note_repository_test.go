package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/medlearn/lms-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func noteRows(note *models.Note) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "subject_id", "title", "description", "file_key", "file_name", "file_size_bytes", "file_type", "mime_type", "version", "uploaded_by", "is_active", "created_at", "updated_at"}).
		AddRow(note.ID, note.SubjectID, note.Title, nil, note.FileKey, note.FileName, note.FileSizeBytes, note.FileType, note.MimeType, note.Version, note.UploadedBy, note.IsActive, time.Now(), time.Now())
}

func TestNoteRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	note := &models.Note{
		SubjectID:     "subj-1",
		Title:         "Cardiac Physiology",
		FileKey:       "notes/ANAT/CARD101/abc_1700000000.pdf",
		FileName:      "lecture.pdf",
		FileSizeBytes: 2097152,
		FileType:      "pdf",
		MimeType:      "application/pdf",
		UploadedBy:    "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), note))
	require.Equal(t, 1, note.Version)
	require.True(t, note.IsActive)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT n.id, n.subject_id, n.title")).
		WithArgs(note.ID).
		WillReturnRows(noteRows(note))

	found, err := repo.GetByID(context.Background(), note.ID)
	require.NoError(t, err)
	require.Equal(t, note.FileKey, found.FileKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryCreateDuplicateFileKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	note := &models.Note{
		SubjectID:  "subj-1",
		Title:      "Duplicate",
		FileKey:    "notes/ANAT/CARD101/abc_1700000000.pdf",
		UploadedBy: "user-1",
	}
	err := repo.Create(context.Background(), note)
	require.ErrorIs(t, err, ErrDuplicateFileKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryListBySubjectWithSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notes")).
		WithArgs("subj-1", "%cardiac%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{"id", "subject_id", "title", "description", "file_key", "file_name", "file_size_bytes", "file_type", "mime_type", "version", "uploaded_by", "is_active", "created_at", "updated_at", "uploader_name"}).
		AddRow("note-1", "subj-1", "Cardiac Physiology", nil, "notes/k1", "lecture.pdf", 2048, "pdf", "application/pdf", 1, "user-1", true, time.Now(), time.Now(), "Dr. Rao")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT n.id, n.subject_id, n.title")).
		WithArgs("subj-1", "%cardiac%").
		WillReturnRows(rows)

	notes, total, err := repo.ListBySubject(context.Background(), models.ContentFilter{SubjectID: "subj-1", Page: 1, Limit: 20}, "cardiac")
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, notes, 1)
	require.Equal(t, "Dr. Rao", notes[0].UploaderName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notes SET is_active = FALSE")).
		WithArgs("note-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SoftDelete(context.Background(), "note-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notes SET is_active = FALSE")).
		WithArgs("note-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.Error(t, repo.SoftDelete(context.Background(), "note-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}
