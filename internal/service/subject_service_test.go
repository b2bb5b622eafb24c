package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medlearn/lms-api/internal/models"
	"github.com/medlearn/lms-api/internal/repository"
	"github.com/medlearn/lms-api/pkg/config"
	appErrors "github.com/medlearn/lms-api/pkg/errors"
)

type stubSubjectStore struct {
	list       []models.SubjectDetail
	detail     *models.SubjectDetail
	detailErr  error
	createErr  error
	updateErr  error
	lastFilter models.SubjectFilter
}

func (s *stubSubjectStore) Create(_ context.Context, subject *models.Subject) error {
	if s.createErr != nil {
		return s.createErr
	}
	subject.ID = "subj-new"
	return nil
}

func (s *stubSubjectStore) GetDetail(_ context.Context, _ string) (*models.SubjectDetail, error) {
	return s.detail, s.detailErr
}

func (s *stubSubjectStore) List(_ context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int64, error) {
	s.lastFilter = filter
	return s.list, int64(len(s.list)), nil
}

func (s *stubSubjectStore) Update(_ context.Context, _ *models.Subject) error {
	return s.updateErr
}

func newSubjectService(subjects *stubSubjectStore, notes *stubNotes, videos *stubVideos) *SubjectService {
	return NewSubjectService(subjects, notes, videos, nil, nil, nil, config.CacheConfig{})
}

func TestSubjectListPrivilegedSeesAll(t *testing.T) {
	subjects := &stubSubjectStore{list: []models.SubjectDetail{*anatSubject()}}
	svc := newSubjectService(subjects, &stubNotes{}, &stubVideos{})

	listed, pagination, err := svc.List(context.Background(), 1, 20, claimsFor(models.RoleAdmin, nil))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Nil(t, subjects.lastFilter.DepartmentID)
	require.EqualValues(t, 1, pagination.TotalItems)
}

func TestSubjectListScopedToOwnDepartment(t *testing.T) {
	subjects := &stubSubjectStore{list: []models.SubjectDetail{*anatSubject()}}
	svc := newSubjectService(subjects, &stubNotes{}, &stubVideos{})

	_, _, err := svc.List(context.Background(), 1, 20, claimsFor(models.RoleStudent, strp("dept-anat")))
	require.NoError(t, err)
	require.NotNil(t, subjects.lastFilter.DepartmentID)
	require.Equal(t, "dept-anat", *subjects.lastFilter.DepartmentID)
}

func TestSubjectListNoDepartmentYieldsEmpty(t *testing.T) {
	subjects := &stubSubjectStore{list: []models.SubjectDetail{*anatSubject()}}
	svc := newSubjectService(subjects, &stubNotes{}, &stubVideos{})

	listed, pagination, err := svc.List(context.Background(), 1, 20, claimsFor(models.RoleFaculty, nil))
	require.NoError(t, err)
	require.Empty(t, listed)
	require.EqualValues(t, 0, pagination.TotalItems)
}

func TestSubjectGetForbiddenAcrossDepartments(t *testing.T) {
	subjects := &stubSubjectStore{detail: anatSubject()}
	svc := newSubjectService(subjects, &stubNotes{}, &stubVideos{})

	_, err := svc.Get(context.Background(), "subj-1", claimsFor(models.RoleStudent, strp("dept-phys")))
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubjectGetAttachesContentFilteredForStudents(t *testing.T) {
	subjects := &stubSubjectStore{detail: anatSubject()}
	notes := &stubNotes{list: []models.NoteWithUploader{{Note: models.Note{ID: "note-1"}}}}
	videos := &stubVideos{list: []models.VideoWithUploader{
		{Video: models.Video{ID: "vid-1", ProcessingStatus: models.ProcessingCompleted}},
		{Video: models.Video{ID: "vid-2", ProcessingStatus: models.ProcessingPending}},
	}}
	svc := newSubjectService(subjects, notes, videos)

	resp, err := svc.Get(context.Background(), "subj-1", claimsFor(models.RoleStudent, strp("dept-anat")))
	require.NoError(t, err)
	require.Len(t, resp.Notes, 1)
	require.Len(t, resp.Videos, 1)
	require.True(t, videos.lastCompletedOnly)

	resp, err = svc.Get(context.Background(), "subj-1", claimsFor(models.RoleFaculty, strp("dept-anat")))
	require.NoError(t, err)
	require.Len(t, resp.Videos, 2)
	require.False(t, videos.lastCompletedOnly)
}

func TestSubjectCreateRequiresCatalogRole(t *testing.T) {
	svc := newSubjectService(&stubSubjectStore{}, &stubNotes{}, &stubVideos{})

	_, err := svc.Create(context.Background(), models.CreateSubjectRequest{
		Name: "Cardiology", Code: "CARD101", CourseID: "course-1",
	}, claimsFor(models.RoleFaculty, strp("dept-anat")))
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	subject, err := svc.Create(context.Background(), models.CreateSubjectRequest{
		Name: "Cardiology", Code: "CARD101", CourseID: "course-1",
	}, claimsFor(models.RoleHOD, strp("dept-anat")))
	require.NoError(t, err)
	require.Equal(t, "subj-new", subject.ID)
}

func TestSubjectCreateDuplicateCodeConflicts(t *testing.T) {
	subjects := &stubSubjectStore{createErr: repository.ErrDuplicateSubjectCode}
	svc := newSubjectService(subjects, &stubNotes{}, &stubVideos{})

	_, err := svc.Create(context.Background(), models.CreateSubjectRequest{
		Name: "Cardiology II", Code: "CARD101", CourseID: "course-1",
	}, claimsFor(models.RoleHOD, strp("dept-anat")))
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectUpdateDuplicateCodeConflicts(t *testing.T) {
	subjects := &stubSubjectStore{detail: anatSubject(), updateErr: repository.ErrDuplicateSubjectCode}
	svc := newSubjectService(subjects, &stubNotes{}, &stubVideos{})

	code := "CARD102"
	_, err := svc.Update(context.Background(), "subj-1", models.UpdateSubjectRequest{Code: &code}, claimsFor(models.RoleHOD, strp("dept-anat")))
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
