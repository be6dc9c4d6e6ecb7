// Package model holds the graph and packet data model of the simulator:
// dense integer identifiers, vertices, edges, packets, and the per-edge
// waiting/leaving queues that the simulator core mutates.
package model

import "flowsim/internal/rational"

// VertexID, EdgeID, and PacketID are dense non-negative integer identifiers
// assigned in load order and immutable after construction.
type (
	VertexID int
	EdgeID   int
	PacketID int
	// Time is a non-negative discrete simulation tick.
	Time int
)

// NoEdge is the value NextEdge returns when there is no next edge. It is -1,
// so it never equals a real EdgeID. The synthetic "entering" stream of the
// zipper merge uses EnteringEdgeID instead.
const NoEdge EdgeID = -1

// EnteringEdgeID returns a sentinel strictly greater than any real edge id
// in a network of the given size, used as the entering stream's edge_id so
// it sorts last on priority ties.
func EnteringEdgeID(numEdges int) EdgeID {
	return EdgeID(numEdges)
}

// Vertex holds the ordered adjacency of a node. Immutable after load; the
// order of OutgoingEdges defines the deterministic order in which the
// vertex processes outgoing edges during node-transitions.
type Vertex struct {
	IncomingEdges []EdgeID
	OutgoingEdges []EdgeID
}

// Edge is a directed, capacitated, transit-time-delayed link between two
// vertices. AverageCapacity is immutable; CurrentCapacity is the mutable
// per-step carry-over accumulator (spec.md §4.3).
type Edge struct {
	ID              EdgeID
	VFrom           VertexID
	VTo             VertexID
	Length          int // positive integer transit time
	AverageCapacity rational.Fraction
	CurrentCapacity rational.Fraction
}

// Packet is an indivisible unit of flow traveling a fixed edge path.
// EntranceTime and PathPosition are unset (use HasEntered) until the packet
// first enters an edge.
type Packet struct {
	ID           PacketID
	CommodityID  *int64 // optional grouping tag, no behavioral effect
	ReleaseTime  Time
	Path         []EdgeID // non-empty; consecutive edges share endpoints
	EntranceTime *Time
	PathPosition *int
}

// HasEntered reports whether the packet has entered its first edge.
func (p *Packet) HasEntered() bool {
	return p.EntranceTime != nil
}

// AtPathEnd reports whether the packet's current position is the last edge
// on its path.
func (p *Packet) AtPathEnd() bool {
	return p.PathPosition != nil && *p.PathPosition == len(p.Path)-1
}

// NextEdge returns the edge the packet should enter after finishing its
// current edge, and whether one exists (false at path end).
func (p *Packet) NextEdge() (EdgeID, bool) {
	if p.PathPosition == nil {
		return NoEdge, false
	}
	next := *p.PathPosition + 1
	if next >= len(p.Path) {
		return NoEdge, false
	}
	return p.Path[next], true
}

// Network is the full topology and state of one simulation instance. The
// simulator (internal/sim) exclusively owns mutation of this state. The
// topology (Vertices, and each Edge's endpoints, length and average capacity)
// is read-only after load; the simulator updates each Edge's CurrentCapacity.
type Network struct {
	Vertices []Vertex
	Edges    []Edge
	Packets  []Packet

	// EdgeQueues[e] is the FIFO of PacketIDs currently traversing edge e.
	EdgeQueues [][]PacketID
	// LeavingQueues[e] is the FIFO of PacketIDs that left edge e this step,
	// pending routing or arrival recording. Cleared at the end of each step.
	LeavingQueues [][]PacketID

	// ArrivalTimes[p] is set exactly once, when packet p completes its path.
	ArrivalTimes []*Time

	Time           Time
	PacketsArrived int
}

// NewNetwork allocates a Network's per-edge queues and per-packet arrival
// table sized to vertices/edges/packets already loaded onto it.
func NewNetwork(vertices []Vertex, edges []Edge, packets []Packet) *Network {
	return &Network{
		Vertices:      vertices,
		Edges:         edges,
		Packets:       packets,
		EdgeQueues:    make([][]PacketID, len(edges)),
		LeavingQueues: make([][]PacketID, len(edges)),
		ArrivalTimes:  make([]*Time, len(packets)),
	}
}

// AllArrived reports whether every packet has an arrival time recorded.
func (n *Network) AllArrived() bool {
	return n.PacketsArrived >= len(n.Packets)
}
