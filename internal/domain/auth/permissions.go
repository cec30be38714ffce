package auth

const (
	RoleAdmin    = "admin"
	RoleAccounts = "accounts"
	RoleViewer   = "viewer"
)

const (
	PermOrgRead         = "org.read"
	PermSalaryRead      = "salary.read"
	PermSalaryWrite     = "salary.write"
	PermSalaryReveal    = "salary.reveal"
	PermSalaryDispatch  = "salary.dispatch"
	PermAccountsSummary = "accounts.summary"
	PermAuditRead       = "audit.read"
)

var DefaultPermissions = []string{
	PermOrgRead,
	PermSalaryRead,
	PermSalaryWrite,
	PermSalaryReveal,
	PermSalaryDispatch,
	PermAccountsSummary,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleViewer: {
		PermOrgRead,
		PermSalaryRead,
	},
	RoleAccounts: {
		PermOrgRead,
		PermSalaryRead,
		PermSalaryReveal,
		PermAccountsSummary,
	},
	RoleAdmin: {
		PermOrgRead,
		PermSalaryRead,
		PermSalaryWrite,
		PermSalaryReveal,
		PermSalaryDispatch,
		PermAccountsSummary,
		PermAuditRead,
	},
}

// UserContext is the authenticated caller carried on the request context.
type UserContext struct {
	UserID   string
	Email    string
	RoleName string
}
