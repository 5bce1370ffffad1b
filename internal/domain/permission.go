package domain

// ResourceKind selects which permission table a grant or revoke targets.
type ResourceKind string

const (
	ResourceConn      ResourceKind = "connection"
	ResourceConnGroup ResourceKind = "connection group"
)

// PermissionRead is the only permission level this tool manages; the gateway
// treats READ on a connection as "may use it".
const PermissionRead = "READ"

// PermissionList is the set of subjects holding a permission on one
// resource, partitioned by subject kind.
type PermissionList struct {
	Users  []string
	Groups []string
}
