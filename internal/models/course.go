package models

import "time"

// Course is a teaching program year within a department, e.g. MBBS Year 1.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	YearLevel    int       `db:"year_level" json:"year_level"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Name         string `json:"name" binding:"required,min=2,max=150"`
	Code         string `json:"code" binding:"required,min=2,max=20,alphanum"`
	DepartmentID string `json:"department_id" binding:"required,uuid"`
	YearLevel    int    `json:"year_level" binding:"required,min=1,max=6"`
}

// UpdateCourseRequest is the payload for partial course updates.
type UpdateCourseRequest struct {
	Name      *string `json:"name,omitempty" binding:"omitempty,min=2,max=150"`
	YearLevel *int    `json:"year_level,omitempty" binding:"omitempty,min=1,max=6"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	DepartmentID *string
	YearLevel    *int
	Page         int
	Limit        int
}
