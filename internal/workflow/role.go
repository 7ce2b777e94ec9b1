package workflow

// Role identifies an actor's part in the review workflow.
type Role string

const (
	RoleApplicant        Role = "APPLICANT"
	RoleInstitutionalRep Role = "INSTITUTIONAL_REP"
	RoleDACMember        Role = "DAC_MEMBER"
	RoleAdmin            Role = "ADMIN"
)

// Roles lists every role the system accepts on a user account.
var Roles = []Role{RoleApplicant, RoleInstitutionalRep, RoleDACMember, RoleAdmin}

// IsValidRole reports whether r is a member of the role enum.
func IsValidRole(r Role) bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}
