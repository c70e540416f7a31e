package domain

// Node roles stored in node metadata.
const (
	RoleIran    = "iran"
	RoleForeign = "foreign"
)

// DefaultNodeAPIPort is used when a create request carries no port.
const DefaultNodeAPIPort = 8888

// Node is a registered node or server as listed by GET /nodes.
type Node struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Fingerprint  string         `json:"fingerprint"`
	Status       string         `json:"status"`
	RegisteredAt string         `json:"registered_at"`
	LastSeen     string         `json:"last_seen"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Role returns the metadata role, or "" when unset.
func (n Node) Role() string {
	if n.Metadata == nil {
		return ""
	}
	role, _ := n.Metadata["role"].(string)
	return role
}

// IsServer reports whether the node is a foreign server.
func (n Node) IsServer() bool {
	return n.Role() == RoleForeign
}

// IsNode reports whether the node is an iran node. Nodes without a role count as nodes.
func (n Node) IsNode() bool {
	role := n.Role()
	return role == RoleIran || role == ""
}

// NodeCreate is the body of POST /nodes.
type NodeCreate struct {
	Name      string         `json:"name"`
	IPAddress string         `json:"ip_address"`
	APIPort   int            `json:"api_port"`
	Metadata  map[string]any `json:"metadata"`
}
