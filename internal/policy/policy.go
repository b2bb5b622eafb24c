// Package policy centralises every content access decision. Handlers and
// services call these functions instead of re-deriving role checks, so the
// rules live in exactly one place.
package policy

import "github.com/medlearn/lms-api/internal/models"

// CanAccessSubject reports whether a user may see a subject and its content.
// Admins and principals see everything. Everyone else is scoped to their own
// department; a user without a department sees nothing department-scoped.
func CanAccessSubject(role models.UserRole, userDepartmentID *string, subjectDepartmentID string) bool {
	if role.Privileged() {
		return true
	}
	if userDepartmentID == nil {
		return false
	}
	return *userDepartmentID == subjectDepartmentID
}

// CanUpload reports whether a role may upload content. The gate is role-only:
// every staff role uploads, students never do.
func CanUpload(role models.UserRole) bool {
	switch role {
	case models.RoleAdmin, models.RolePrincipal, models.RoleHOD, models.RoleFaculty:
		return true
	}
	return false
}

// CanDelete reports whether a user may soft delete a content item. The
// uploader may always remove their own item; admins and principals may remove
// anything.
func CanDelete(role models.UserRole, userID, uploaderID string) bool {
	if role.Privileged() {
		return true
	}
	return userID == uploaderID
}

// CanViewVideo reports whether a video is visible to the user at all.
// Students only ever see fully processed videos; staff see every state so
// they can track the pipeline.
func CanViewVideo(role models.UserRole, status models.ProcessingStatus) bool {
	if role == models.RoleStudent {
		return status == models.ProcessingCompleted
	}
	return true
}

// CanManageUsers reports whether the role may create or modify accounts.
func CanManageUsers(role models.UserRole) bool {
	return role.Privileged()
}

// CanManageCatalog reports whether the role may modify departments, courses
// and subjects. Heads of department share this with admins and principals.
func CanManageCatalog(role models.UserRole) bool {
	return role.Privileged() || role == models.RoleHOD
}

// CanRequestReports reports whether the role may generate exports.
func CanRequestReports(role models.UserRole) bool {
	return role.Privileged() || role == models.RoleHOD
}
