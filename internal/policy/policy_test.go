package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medlearn/lms-api/internal/models"
)

func strPtr(s string) *string { return &s }

func TestCanAccessSubject(t *testing.T) {
	deptA := "dept-a"
	deptB := "dept-b"

	tests := []struct {
		name     string
		role     models.UserRole
		userDept *string
		subjDept string
		want     bool
	}{
		{"admin without department", models.RoleAdmin, nil, deptA, true},
		{"admin with other department", models.RoleAdmin, strPtr(deptB), deptA, true},
		{"principal without department", models.RolePrincipal, nil, deptA, true},
		{"hod same department", models.RoleHOD, strPtr(deptA), deptA, true},
		{"hod other department", models.RoleHOD, strPtr(deptB), deptA, false},
		{"faculty same department", models.RoleFaculty, strPtr(deptA), deptA, true},
		{"faculty other department", models.RoleFaculty, strPtr(deptB), deptA, false},
		{"faculty without department", models.RoleFaculty, nil, deptA, false},
		{"student same department", models.RoleStudent, strPtr(deptA), deptA, true},
		{"student other department", models.RoleStudent, strPtr(deptB), deptA, false},
		{"student without department", models.RoleStudent, nil, deptA, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessSubject(tt.role, tt.userDept, tt.subjDept))
		})
	}
}

func TestCanUploadIsRoleOnly(t *testing.T) {
	assert.True(t, CanUpload(models.RoleAdmin))
	assert.True(t, CanUpload(models.RolePrincipal))
	assert.True(t, CanUpload(models.RoleHOD))
	assert.True(t, CanUpload(models.RoleFaculty))
	assert.False(t, CanUpload(models.RoleStudent))
	assert.False(t, CanUpload(models.UserRole("GUEST")))
}

func TestCanDelete(t *testing.T) {
	assert.True(t, CanDelete(models.RoleFaculty, "u1", "u1"))
	assert.False(t, CanDelete(models.RoleFaculty, "u1", "u2"))
	assert.False(t, CanDelete(models.RoleHOD, "u1", "u2"))
	assert.True(t, CanDelete(models.RoleAdmin, "u1", "u2"))
	assert.True(t, CanDelete(models.RolePrincipal, "u1", "u2"))
	assert.True(t, CanDelete(models.RoleStudent, "u1", "u1"))
}

func TestCanViewVideo(t *testing.T) {
	assert.True(t, CanViewVideo(models.RoleStudent, models.ProcessingCompleted))
	assert.False(t, CanViewVideo(models.RoleStudent, models.ProcessingPending))
	assert.False(t, CanViewVideo(models.RoleStudent, models.ProcessingInProgress))
	assert.False(t, CanViewVideo(models.RoleStudent, models.ProcessingFailed))

	assert.True(t, CanViewVideo(models.RoleFaculty, models.ProcessingPending))
	assert.True(t, CanViewVideo(models.RoleHOD, models.ProcessingFailed))
	assert.True(t, CanViewVideo(models.RoleAdmin, models.ProcessingInProgress))
}

func TestManagementRoles(t *testing.T) {
	assert.True(t, CanManageUsers(models.RoleAdmin))
	assert.True(t, CanManageUsers(models.RolePrincipal))
	assert.False(t, CanManageUsers(models.RoleHOD))
	assert.False(t, CanManageUsers(models.RoleFaculty))

	assert.True(t, CanManageCatalog(models.RoleHOD))
	assert.False(t, CanManageCatalog(models.RoleFaculty))
	assert.False(t, CanManageCatalog(models.RoleStudent))

	assert.True(t, CanRequestReports(models.RoleHOD))
	assert.False(t, CanRequestReports(models.RoleStudent))
}
