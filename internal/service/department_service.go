package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/medlearn/lms-api/internal/models"
	"github.com/medlearn/lms-api/internal/policy"
	appErrors "github.com/medlearn/lms-api/pkg/errors"
)

type departmentStore interface {
	Create(ctx context.Context, dept *models.Department) error
	GetByID(ctx context.Context, id string) (*models.Department, error)
	GetByCode(ctx context.Context, code string) (*models.Department, error)
	List(ctx context.Context) ([]models.Department, error)
	Update(ctx context.Context, dept *models.Department) error
}

type courseLister interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
}

// DepartmentService manages the academic department catalog.
type DepartmentService struct {
	departments departmentStore
	courses     courseLister
	logger      *zap.Logger
}

// NewDepartmentService constructs the service.
func NewDepartmentService(departments departmentStore, courses courseLister, logger *zap.Logger) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{departments: departments, courses: courses, logger: logger}
}

// Create adds a department. Admin and principal only.
func (s *DepartmentService) Create(ctx context.Context, req models.CreateDepartmentRequest, actor *models.JWTClaims) (*models.Department, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !policy.CanManageUsers(actor.Role) {
		return nil, appErrors.ErrForbidden
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if _, err := s.departments.GetByCode(ctx, code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department code already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department code")
	}

	dept := &models.Department{Name: req.Name, Code: code, HeadID: req.HeadID}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}
	return dept, nil
}

// Get retrieves one department.
func (s *DepartmentService) Get(ctx context.Context, id string) (*models.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return dept, nil
}

// List returns every department.
func (s *DepartmentService) List(ctx context.Context) ([]models.Department, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return depts, nil
}

// Update applies partial changes to a department. Admin and principal only.
func (s *DepartmentService) Update(ctx context.Context, id string, req models.UpdateDepartmentRequest, actor *models.JWTClaims) (*models.Department, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !policy.CanManageUsers(actor.Role) {
		return nil, appErrors.ErrForbidden
	}
	dept, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		dept.Name = *req.Name
	}
	if req.HeadID != nil {
		dept.HeadID = req.HeadID
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}
	return dept, nil
}

// Courses lists the courses owned by one department.
func (s *DepartmentService) Courses(ctx context.Context, id string) ([]models.Course, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	courses, err := s.courses.List(ctx, models.CourseFilter{DepartmentID: &id})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list department courses")
	}
	return courses, nil
}
