package models

import "time"

// UserRole enumerates the roles recognised by the access policy.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RolePrincipal UserRole = "PRINCIPAL"
	RoleHOD       UserRole = "HOD"
	RoleFaculty   UserRole = "FACULTY"
	RoleStudent   UserRole = "STUDENT"
)

// ValidRoles lists every assignable role.
var ValidRoles = []UserRole{RoleAdmin, RolePrincipal, RoleHOD, RoleFaculty, RoleStudent}

// IsValid reports whether the role is one of the known values.
func (r UserRole) IsValid() bool {
	for _, role := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Privileged reports whether the role bypasses department scoping.
func (r UserRole) Privileged() bool {
	return r == RoleAdmin || r == RolePrincipal
}

// User represents an account in the system. Students and faculty belong to a
// department; admins and principals may have no department at all.
type User struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	CurrentYear  *int      `db:"current_year" json:"current_year,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CreateUserRequest is the payload for creating an account.
type CreateUserRequest struct {
	FullName     string   `json:"full_name" binding:"required,min=2,max=150"`
	Email        string   `json:"email" binding:"required,email"`
	Password     string   `json:"password" binding:"required,min=8,max=72"`
	Role         UserRole `json:"role" binding:"required"`
	DepartmentID *string  `json:"department_id,omitempty" binding:"omitempty,uuid"`
	CurrentYear  *int     `json:"current_year,omitempty" binding:"omitempty,min=1,max=6"`
}

// UpdateUserRequest is the payload for partial account updates.
type UpdateUserRequest struct {
	FullName     *string   `json:"full_name,omitempty" binding:"omitempty,min=2,max=150"`
	Role         *UserRole `json:"role,omitempty"`
	DepartmentID *string   `json:"department_id,omitempty" binding:"omitempty,uuid"`
	CurrentYear  *int      `json:"current_year,omitempty" binding:"omitempty,min=1,max=6"`
	Active       *bool     `json:"active,omitempty"`
}

// UserFilter narrows account listings.
type UserFilter struct {
	Role         *UserRole
	DepartmentID *string
	Search       string
	Page         int
	Limit        int
}

// Pagination describes page metadata returned alongside list payloads.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination computes page counts from a total.
func NewPagination(page, limit int, total int64) *Pagination {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Pagination{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
