package domain

// Protocols accepted for new connections.
const (
	ProtocolVNC = "vnc"
	ProtocolRDP = "rdp"
	ProtocolSSH = "ssh"
)

// KnownProtocol reports whether p is a supported connection protocol.
func KnownProtocol(p string) bool {
	return p == ProtocolVNC || p == ProtocolRDP || p == ProtocolSSH
}

// Connection is a remote-desktop connection resource. ParentID is nil when
// the connection sits at the root.
type Connection struct {
	ID          int64
	Name        string
	Protocol    string
	ParentID    *int64
	ParentName  string
	Hostname    string
	Port        string
	Groups      []string // user-groups holding a permission
	Users       []string // users holding a permission
}

// ConnParameter is one row of the connection parameter table.
type ConnParameter struct {
	Name  string
	Value string
}

// ConnAttribute describes a modifiable connection setting and where it lives.
type ConnAttribute struct {
	Table       string // "connection" or "parameter"
	Type        string
	Default     string
	Description string
}

// ConnAttributes whitelists what `conn modify --set` may change.
var ConnAttributes = map[string]ConnAttribute{
	"hostname":    {Table: "parameter", Type: "string", Default: "", Description: "Server hostname or IP address"},
	"port":        {Table: "parameter", Type: "integer", Default: "", Description: "Server port"},
	"password":    {Table: "parameter", Type: "string", Default: "", Description: "Remote server password"},
	"username":    {Table: "parameter", Type: "string", Default: "", Description: "Remote server username"},
	"max_connections": {Table: "connection", Type: "integer", Default: "",
		Description: "Concurrent connection limit (empty for unlimited)"},
	"max_connections_per_user": {Table: "connection", Type: "integer", Default: "",
		Description: "Concurrent connection limit per user (empty for unlimited)"},
}
