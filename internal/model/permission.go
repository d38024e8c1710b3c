package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionParticipantsRead allows viewing and exporting participants.
	PermissionParticipantsRead Permission = "participants:read"

	// PermissionParticipantsWrite allows adding participants and importing the roster.
	PermissionParticipantsWrite Permission = "participants:write"

	// PermissionExamsRead allows viewing exams, codes and attempts.
	PermissionExamsRead Permission = "exams:read"

	// PermissionExamsWrite allows creating exams, toggling them and generating codes.
	PermissionExamsWrite Permission = "exams:write"

	// PermissionAttemptsTransition allows bulk reset and disqualification.
	PermissionAttemptsTransition Permission = "attempts:transition"

	// PermissionLocksManage allows unlocking sessions and rotating lock tokens.
	PermissionLocksManage Permission = "locks:manage"

	// PermissionEventsRead allows reading the security event log.
	PermissionEventsRead Permission = "events:read"

	// PermissionNotificationsTest allows sending a test notification.
	PermissionNotificationsTest Permission = "notifications:test"
)

// Role is a fixed admin role.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleProctor    Role = "proctor"
)

var rolePermissions = map[Role][]Permission{
	RoleSuperAdmin: {
		PermissionParticipantsRead,
		PermissionParticipantsWrite,
		PermissionExamsRead,
		PermissionExamsWrite,
		PermissionAttemptsTransition,
		PermissionLocksManage,
		PermissionEventsRead,
		PermissionNotificationsTest,
	},
	RoleProctor: {
		PermissionParticipantsRead,
		PermissionExamsRead,
		PermissionLocksManage,
		PermissionEventsRead,
	},
}

// Permissions returns the permission codes granted to the role.
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}
