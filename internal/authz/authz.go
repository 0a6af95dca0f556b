package authz

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the effective role of a user after owner and stored-role resolution.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUploader  Role = "uploader"
	RoleUser      Role = "user"
)

// Permission names match the keys exposed by GET /api/me/permissions.
type Permission string

const (
	PermUploadWithoutApproval Permission = "canUploadWithoutApproval"
	PermDeleteFiles           Permission = "canDeleteFiles"
	PermManageUsers           Permission = "canManageUsers"
	PermAccessAdminPanel      Permission = "canAccessAdminPanel"
	PermModerateContent       Permission = "canModerateContent"
	PermManageSubjectRequests Permission = "canManageSubjectRequests"
)

var AllPermissions = []Permission{
	PermUploadWithoutApproval,
	PermDeleteFiles,
	PermManageUsers,
	PermAccessAdminPanel,
	PermModerateContent,
	PermManageSubjectRequests,
}

// rolePermissions is constant; nothing mutates it after init.
var rolePermissions = map[Role]map[Permission]bool{
	RoleOwner: {
		PermUploadWithoutApproval: true,
		PermDeleteFiles:           true,
		PermManageUsers:           true,
		PermAccessAdminPanel:      true,
		PermModerateContent:       true,
		PermManageSubjectRequests: true,
	},
	RoleAdmin: {
		PermUploadWithoutApproval: true,
		PermDeleteFiles:           true,
		PermManageUsers:           true,
		PermAccessAdminPanel:      true,
		PermModerateContent:       true,
		PermManageSubjectRequests: true,
	},
	RoleModerator: {
		PermUploadWithoutApproval: true,
		PermDeleteFiles:           true,
		PermAccessAdminPanel:      true,
		PermModerateContent:       true,
	},
	RoleUploader: {
		PermUploadWithoutApproval: true,
	},
	RoleUser: {},
}

// ParseRole accepts only the five known role names.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rolePermissions[r]; !ok {
		return "", false
	}
	return r, true
}

// Rank orders roles by privilege; unknown roles rank below user.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleModerator:
		return 2
	case RoleUploader:
		return 1
	case RoleUser:
		return 0
	}
	return -1
}

// Can reports the table value for (role, perm). Unknown roles get nothing.
func Can(role Role, perm Permission) bool {
	return rolePermissions[role][perm]
}

// Identity is the verified caller of a request.
type Identity struct {
	UserID        uuid.UUID
	Email         string
	EmailVerified bool
	Role          Role
}

func (i Identity) Can(perm Permission) bool {
	return Can(i.Role, perm)
}
