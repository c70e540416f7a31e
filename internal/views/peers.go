package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/domain"
	"github.com/cimex/cimex-console/internal/format"
)

// Catalog names of the node and server views.
const (
	NodesName   = "nodes"
	ServersName = "servers"
)

// ErrEmptyCA is returned when the panel serves an empty CA certificate.
var ErrEmptyCA = errors.New("CA certificate is empty")

// Peers lists the registered nodes of one role. Nodes and Servers share it.
type Peers struct {
	*base[[]domain.Node]
	backend Backend
	role    string
	caKind  apiclient.CAKind
}

// PeerRow is one rendered node or server.
type PeerRow struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Fingerprint      string `json:"fingerprint"`
	Status           string `json:"status"`
	ConnectionStatus string `json:"connection_status"`
	Address          string `json:"address"`
	LastSeen         string `json:"last_seen"`
}

// NewPeerInput is the operator input for registering a node or server.
type NewPeerInput struct {
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
	APIPort   int    `json:"api_port"`
}

// NewNodes returns the iran node list. Nodes without a role are included.
func NewNodes(backend Backend, opts Options) *Peers {
	return newPeers(NodesName, domain.RoleIran, apiclient.CAPanel, backend, opts)
}

// NewServers returns the foreign server list.
func NewServers(backend Backend, opts Options) *Peers {
	return newPeers(ServersName, domain.RoleForeign, apiclient.CAServer, backend, opts)
}

func newPeers(name, role string, kind apiclient.CAKind, backend Backend, opts Options) *Peers {
	fetch := func(ctx context.Context) ([]domain.Node, error) {
		nodes, err := backend.Nodes(ctx)
		if err != nil {
			return nil, err
		}
		return FilterByRole(nodes, role), nil
	}
	render := func(nodes []domain.Node) any {
		return renderPeers(nodes, time.Now())
	}
	// Lists load on mount and after mutations only.
	return &Peers{
		base:    newBase(name, 0, fetch, render, opts),
		backend: backend,
		role:    role,
		caKind:  kind,
	}
}

// FilterByRole keeps the nodes belonging to role.
func FilterByRole(nodes []domain.Node, role string) []domain.Node {
	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		if (role == domain.RoleForeign && n.IsServer()) || (role == domain.RoleIran && n.IsNode()) {
			out = append(out, n)
		}
	}
	return out
}

// Role returns the role this list shows.
func (p *Peers) Role() string {
	return p.role
}

// Create registers a node with this list's role and refetches.
func (p *Peers) Create(ctx context.Context, in NewPeerInput) (*domain.Node, error) {
	node, err := CreatePeer(ctx, p.backend, p.role, in)
	if err != nil {
		return nil, err
	}
	p.Refresh()
	return node, nil
}

// Delete removes a node and refetches.
func (p *Peers) Delete(ctx context.Context, id string) error {
	if err := p.backend.DeleteNode(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	p.Refresh()
	return nil
}

// CA returns the CA certificate text nodes of this role trust.
func (p *Peers) CA(ctx context.Context) (string, error) {
	return FetchCA(ctx, p.backend, p.caKind)
}

// DownloadCA returns the certificate as an attachment and its file name.
func (p *Peers) DownloadCA(ctx context.Context) (string, []byte, error) {
	return DownloadCA(ctx, p.backend, p.caKind)
}

// CreatePeer posts a node with role in its metadata. A missing port
// falls back to the default node API port.
func CreatePeer(ctx context.Context, backend Backend, role string, in NewPeerInput) (*domain.Node, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.IPAddress) == "" {
		return nil, errors.New("name and ip_address are required")
	}
	port := in.APIPort
	if port <= 0 {
		port = domain.DefaultNodeAPIPort
	}
	node, err := backend.CreateNode(ctx, domain.NodeCreate{
		Name:      in.Name,
		IPAddress: in.IPAddress,
		APIPort:   port,
		Metadata:  map[string]any{"role": role},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s node: %w", role, err)
	}
	return node, nil
}

// FetchCA returns the CA certificate text, or ErrEmptyCA.
func FetchCA(ctx context.Context, backend Backend, kind apiclient.CAKind) (string, error) {
	body, err := backend.CA(ctx, kind, false)
	if err != nil {
		return "", fmt.Errorf("fetch %s CA: %w", kind, err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", ErrEmptyCA
	}
	return string(body), nil
}

// DownloadCA returns the attachment variant of the CA certificate.
func DownloadCA(ctx context.Context, backend Backend, kind apiclient.CAKind) (string, []byte, error) {
	body, err := backend.CA(ctx, kind, true)
	if err != nil {
		return "", nil, fmt.Errorf("download %s CA: %w", kind, err)
	}
	return CAFilename(kind), body, nil
}

// CAFilename is the download name of a CA certificate.
func CAFilename(kind apiclient.CAKind) string {
	if kind == apiclient.CAServer {
		return "ca-server.crt"
	}
	return "ca.crt"
}

func renderPeers(nodes []domain.Node, now time.Time) any {
	rows := make([]PeerRow, 0, len(nodes))
	for _, n := range nodes {
		conn, _ := n.Metadata["connection_status"].(string)
		if conn == "" {
			conn = "failed"
		}
		addr, _ := n.Metadata["ip_address"].(string)
		if addr == "" {
			addr = "Unassigned"
		}
		rows = append(rows, PeerRow{
			ID:               n.ID,
			Name:             n.Name,
			Fingerprint:      n.Fingerprint,
			Status:           n.Status,
			ConnectionStatus: conn,
			Address:          addr,
			LastSeen:         format.LastSeen(n.LastSeen, now),
		})
	}
	return rows
}
