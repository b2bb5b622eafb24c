package models

import "time"

// Subject is a single teachable unit within a course. Subject codes are
// unique within their course.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectDetail joins the owning course and department, which the access
// policy needs for department scoping.
type SubjectDetail struct {
	Subject
	CourseName     string `db:"course_name" json:"course_name"`
	YearLevel      int    `db:"year_level" json:"year_level"`
	DepartmentID   string `db:"department_id" json:"department_id"`
	DepartmentCode string `db:"department_code" json:"department_code"`
}

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=150"`
	Code     string `json:"code" binding:"required,min=2,max=20"`
	CourseID string `json:"course_id" binding:"required,uuid"`
}

// UpdateSubjectRequest is the payload for partial subject updates.
type UpdateSubjectRequest struct {
	Name *string `json:"name,omitempty" binding:"omitempty,min=2,max=150"`
	Code *string `json:"code,omitempty" binding:"omitempty,min=2,max=20"`
}

// SubjectFilter narrows subject listings.
type SubjectFilter struct {
	CourseID     *string
	DepartmentID *string
	Page         int
	Limit        int
}
