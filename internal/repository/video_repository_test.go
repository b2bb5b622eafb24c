package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/medlearn/lms-api/internal/models"
)

func TestVideoRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO videos")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	video := &models.Video{
		SubjectID:     "subj-1",
		Title:         "Surgery Basics",
		FileKey:       "videos/raw/ANAT/SURG101/abc_1700000000.mp4",
		FileName:      "surgery.mp4",
		FileSizeBytes: 3 << 30,
		MimeType:      "video/mp4",
		UploadedBy:    "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), video))
	require.Equal(t, models.ProcessingPending, video.ProcessingStatus)
	require.Nil(t, video.HLSKey)
	require.Nil(t, video.DurationSeconds)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepositoryCreateDuplicateFileKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO videos")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	video := &models.Video{
		SubjectID:  "subj-1",
		Title:      "Duplicate",
		FileKey:    "videos/raw/ANAT/SURG101/abc_1700000000.mp4",
		UploadedBy: "user-1",
	}
	require.ErrorIs(t, repo.Create(context.Background(), video), ErrDuplicateFileKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func videoListRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "subject_id", "title", "description", "file_key", "file_name", "file_size_bytes", "mime_type", "processing_status", "hls_key", "thumbnail_key", "duration_seconds", "uploaded_by", "is_active", "created_at", "updated_at", "uploader_name"}).
		AddRow("vid-1", "subj-1", "Surgery Basics", nil, "videos/raw/k1", "surgery.mp4", 1024, "video/mp4", "completed", "videos/hls/k1/index.m3u8", "videos/thumbs/k1.jpg", 600, "user-1", true, time.Now(), time.Now(), "Dr. Rao")
}

func TestVideoRepositoryListCompletedOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVideoRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM videos")).
		WithArgs("subj-1", models.ProcessingCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT v.id, v.subject_id, v.title")).
		WithArgs("subj-1", models.ProcessingCompleted).
		WillReturnRows(videoListRows())

	videos, total, err := repo.ListBySubject(context.Background(), models.ContentFilter{SubjectID: "subj-1", Page: 1, Limit: 20}, "", true)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, videos, 1)
	require.Equal(t, models.ProcessingCompleted, videos[0].ProcessingStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepositoryListAllStatuses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVideoRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM videos")).
		WithArgs("subj-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT v.id, v.subject_id, v.title")).
		WithArgs("subj-1").
		WillReturnRows(videoListRows())

	_, _, err := repo.ListBySubject(context.Background(), models.ContentFilter{SubjectID: "subj-1"}, "", false)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepositoryUpdateProcessing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	hls := "videos/hls/k1/index.m3u8"
	thumb := "videos/thumbs/k1.jpg"
	duration := 600

	mock.ExpectExec(regexp.QuoteMeta("UPDATE videos SET processing_status = $2")).
		WithArgs("vid-1", models.ProcessingCompleted, hls, thumb, duration, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateProcessing(context.Background(), "vid-1", models.ProcessingCompleted, &hls, &thumb, &duration))
	require.NoError(t, mock.ExpectationsWereMet())
}
