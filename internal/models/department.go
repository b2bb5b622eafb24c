package models

import "time"

// Department groups courses, subjects and people under a single academic unit.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	HeadID    *string   `db:"head_id" json:"head_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateDepartmentRequest is the payload for creating a department.
type CreateDepartmentRequest struct {
	Name   string  `json:"name" binding:"required,min=2,max=150"`
	Code   string  `json:"code" binding:"required,min=2,max=20,alphanum"`
	HeadID *string `json:"head_id,omitempty" binding:"omitempty,uuid"`
}

// UpdateDepartmentRequest is the payload for partial department updates.
type UpdateDepartmentRequest struct {
	Name   *string `json:"name,omitempty" binding:"omitempty,min=2,max=150"`
	HeadID *string `json:"head_id,omitempty" binding:"omitempty,uuid"`
}
