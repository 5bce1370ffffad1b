package domain

// User is a principal account in the gateway store.
type User struct {
	EntityID int64
	Name     string
	Groups   []string
}

// UserAttribute describes one whitelisted column of the user record that
// `user modify --set` may change.
type UserAttribute struct {
	Column      string
	Type        string // "boolean" or "string"
	Default     string
	Description string
}

// UserAttributes is the whitelist of modifiable user account parameters.
// Anything else is rejected before a statement is built.
var UserAttributes = map[string]UserAttribute{
	"disabled":            {Column: "disabled", Type: "boolean", Default: "0", Description: "Disable the account (1) or enable it (0)"},
	"expired":             {Column: "expired", Type: "boolean", Default: "0", Description: "Force a password reset on next login"},
	"full_name":           {Column: "full_name", Type: "string", Default: "", Description: "Display name of the account holder"},
	"email_address":       {Column: "email_address", Type: "string", Default: "", Description: "Contact e-mail address"},
	"organization":        {Column: "organization", Type: "string", Default: "", Description: "Organization the account belongs to"},
	"organizational_role": {Column: "organizational_role", Type: "string", Default: "", Description: "Role within the organization"},
	"timezone":            {Column: "timezone", Type: "string", Default: "", Description: "IANA timezone for access windows"},
}

// UserGroup is a named collection of users; always a subject of permissions,
// never a resource.
type UserGroup struct {
	EntityID int64
	Name     string
	Members  []string
}
