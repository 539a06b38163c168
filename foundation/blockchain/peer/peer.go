// Package peer maintains the peer related information such as the set
// of live connections and their status.
package peer

import (
	"sort"
	"sync"
)

// Conn represents a live connection to another node in the network.
type Conn interface {
	ID() string
	Host() string
	Send(msg []byte) bool
	Close() error
}

// =============================================================================

// Status represents information about the status of any given node.
type Status struct {
	LatestBlockHash  string   `json:"latest_block_hash"`
	LatestBlockIndex uint64   `json:"latest_block_index"`
	KnownPeers       []string `json:"known_peers"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of live
// peer connections.
type PeerSet struct {
	mu  sync.RWMutex
	set map[string]Conn
}

// NewPeerSet constructs a new set to manage peer connections.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[string]Conn),
	}
}

// Add adds a new connection to the set. It returns false if a connection
// with the same id is already in the set.
func (ps *PeerSet) Add(conn Conn) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.set[conn.ID()]; exists {
		return false
	}

	ps.set[conn.ID()] = conn
	return true
}

// Remove removes a connection from the set. Removing a connection that is
// not in the set does nothing.
func (ps *PeerSet) Remove(conn Conn) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, conn.ID())
}

// Copy returns the list of live connections.
func (ps *PeerSet) Copy() []Conn {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	conns := make([]Conn, 0, len(ps.set))
	for _, conn := range ps.set {
		conns = append(conns, conn)
	}

	return conns
}

// Hosts returns the sorted addresses of the live connections.
func (ps *PeerSet) Hosts() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	hosts := make([]string, 0, len(ps.set))
	for _, conn := range ps.set {
		hosts = append(hosts, conn.Host())
	}
	sort.Strings(hosts)

	return hosts
}

// Len returns the number of live connections.
func (ps *PeerSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}
