package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medlearn/lms-api/internal/dto"
	"github.com/medlearn/lms-api/internal/models"
	"github.com/medlearn/lms-api/internal/policy"
	"github.com/medlearn/lms-api/internal/repository"
	"github.com/medlearn/lms-api/pkg/config"
	appErrors "github.com/medlearn/lms-api/pkg/errors"
)

type subjectStore interface {
	Create(ctx context.Context, subject *models.Subject) error
	GetDetail(ctx context.Context, id string) (*models.SubjectDetail, error)
	List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int64, error)
	Update(ctx context.Context, subject *models.Subject) error
}

type subjectCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// SubjectService serves subject listings and details with role/department
// visibility applied before anything leaves the database layer.
type SubjectService struct {
	subjects subjectStore
	notes    noteStore
	videos   videoStore
	cache    subjectCache
	metrics  cacheObserver
	logger   *zap.Logger
	cfg      config.CacheConfig
}

// NewSubjectService constructs the service.
func NewSubjectService(subjects subjectStore, notes noteStore, videos videoStore, cache subjectCache, metrics cacheObserver, logger *zap.Logger, cfg config.CacheConfig) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{
		subjects: subjects,
		notes:    notes,
		videos:   videos,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// List returns subjects visible to the actor. Admins and principals see all;
// everyone else sees only their own department, and no department means an
// empty listing rather than an error.
func (s *SubjectService) List(ctx context.Context, page, limit int, actor *models.JWTClaims) ([]models.SubjectDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}

	filter := models.SubjectFilter{Page: page, Limit: limit}
	if !actor.Role.Privileged() {
		if actor.DepartmentID == nil {
			return []models.SubjectDetail{}, models.NewPagination(page, limit, 0), nil
		}
		filter.DepartmentID = actor.DepartmentID
	}

	key := s.listCacheKey(filter)
	if s.cacheEnabled() {
		var cached struct {
			Subjects []models.SubjectDetail `json:"subjects"`
			Total    int64                  `json:"total"`
		}
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		s.observeCache(err == nil, time.Since(start))
		if err == nil {
			return cached.Subjects, models.NewPagination(page, limit, cached.Total), nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("subject list cache read failed", zap.Error(err))
		}
	}

	subjects, total, err := s.subjects.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	if s.cacheEnabled() {
		payload := struct {
			Subjects []models.SubjectDetail `json:"subjects"`
			Total    int64                  `json:"total"`
		}{Subjects: subjects, Total: total}
		if err := s.cache.Set(ctx, key, payload, s.cfg.SubjectTTL); err != nil {
			s.logger.Warn("subject list cache write failed", zap.Error(err))
		}
	}
	return subjects, models.NewPagination(page, limit, total), nil
}

// Get returns a subject detail with its active notes and videos attached.
// Students see only completed videos.
func (s *SubjectService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.SubjectDetailResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	subject, err := s.subjects.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !policy.CanAccessSubject(actor.Role, actor.DepartmentID, subject.DepartmentID) {
		return nil, appErrors.ErrForbidden
	}

	completedOnly := actor.Role == models.RoleStudent
	key := s.detailCacheKey(id, completedOnly)
	if s.cacheEnabled() {
		var cached dto.SubjectDetailResponse
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		s.observeCache(err == nil, time.Since(start))
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("subject detail cache read failed", zap.Error(err))
		}
	}

	contentFilter := models.ContentFilter{SubjectID: subject.ID, Page: 1, Limit: 100}
	notes, _, err := s.notes.ListBySubject(ctx, contentFilter, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject notes")
	}
	videos, _, err := s.videos.ListBySubject(ctx, contentFilter, "", completedOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject videos")
	}

	resp := &dto.SubjectDetailResponse{SubjectDetail: *subject, Notes: notes, Videos: videos}
	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, resp, s.cfg.SubjectTTL); err != nil {
			s.logger.Warn("subject detail cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// ListByCourse returns subjects under one course, subject to department scoping.
func (s *SubjectService) ListByCourse(ctx context.Context, courseID string, page, limit int, actor *models.JWTClaims) ([]models.SubjectDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.SubjectFilter{CourseID: &courseID, Page: page, Limit: limit}
	if !actor.Role.Privileged() {
		if actor.DepartmentID == nil {
			return []models.SubjectDetail{}, models.NewPagination(page, limit, 0), nil
		}
		filter.DepartmentID = actor.DepartmentID
	}
	subjects, total, err := s.subjects.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course subjects")
	}
	return subjects, models.NewPagination(page, limit, total), nil
}

// Create adds a subject to a course. Catalog managers only.
func (s *SubjectService) Create(ctx context.Context, req models.CreateSubjectRequest, actor *models.JWTClaims) (*models.Subject, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !policy.CanManageCatalog(actor.Role) {
		return nil, appErrors.ErrForbidden
	}
	subject := &models.Subject{Name: req.Name, Code: req.Code, CourseID: req.CourseID}
	if err := s.subjects.Create(ctx, subject); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubjectCode) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already used in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.invalidateAll(ctx)
	return subject, nil
}

// Update applies partial changes to a subject. Catalog managers only.
func (s *SubjectService) Update(ctx context.Context, id string, req models.UpdateSubjectRequest, actor *models.JWTClaims) (*models.Subject, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !policy.CanManageCatalog(actor.Role) {
		return nil, appErrors.ErrForbidden
	}
	detail, err := s.subjects.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	subject := detail.Subject
	if req.Name != nil {
		subject.Name = *req.Name
	}
	if req.Code != nil {
		subject.Code = *req.Code
	}
	if err := s.subjects.Update(ctx, &subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		if errors.Is(err, repository.ErrDuplicateSubjectCode) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already used in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	s.invalidateAll(ctx)
	return &subject, nil
}

func (s *SubjectService) cacheEnabled() bool {
	return s.cache != nil && s.cfg.Enabled
}

func (s *SubjectService) listCacheKey(filter models.SubjectFilter) string {
	scope := "all"
	if filter.DepartmentID != nil {
		scope = *filter.DepartmentID
	}
	return fmt.Sprintf("subjects:list:%s:%d:%d", scope, filter.Page, filter.Limit)
}

func (s *SubjectService) detailCacheKey(id string, completedOnly bool) string {
	audience := "staff"
	if completedOnly {
		audience = "student"
	}
	return fmt.Sprintf("subjects:%s:detail:%s", id, audience)
}

func (s *SubjectService) invalidateAll(ctx context.Context) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "subjects:*"); err != nil {
		s.logger.Warn("failed to invalidate subject cache", zap.Error(err))
	}
}

func (s *SubjectService) observeCache(hit bool, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheOperation(hit, duration)
}
