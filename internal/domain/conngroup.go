package domain

// RootGroupName is how the implicit root is rendered in listings.
const RootGroupName = "ROOT"

// ConnectionGroup is a node of the connection hierarchy. ParentID is nil for
// nodes attached to the implicit root.
type ConnectionGroup struct {
	ID          int64
	Name        string
	ParentID    *int64
	ParentName  string // RootGroupName when ParentID is nil
	Connections []string
}
