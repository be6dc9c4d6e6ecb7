package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowsim/internal/model"
	"flowsim/internal/rational"
)

func newLinearEdge(id model.EdgeID, length int, capacity rational.Fraction) model.Edge {
	return model.Edge{
		ID:              id,
		VFrom:           model.VertexID(id),
		VTo:             model.VertexID(id) + 1,
		Length:          length,
		AverageCapacity: capacity,
		CurrentCapacity: capacity,
	}
}

func newPacket(id model.PacketID, releaseTime model.Time, path []model.EdgeID) model.Packet {
	return model.Packet{
		ID:          id,
		ReleaseTime: releaseTime,
		Path:        path,
	}
}

func TestEmptyInstance(t *testing.T) {
	net := model.NewNetwork(nil, nil, nil)
	s := New(net)
	require.NoError(t, s.Run())

	assert.Equal(t, 0, net.PacketsArrived)
	assert.Equal(t, model.Time(0), net.Time)
	assert.Empty(t, net.ArrivalTimes)
}

func TestSingleEdgeSinglePacket(t *testing.T) {
	edges := []model.Edge{newLinearEdge(0, 1, rational.One)}
	vertices := []model.Vertex{
		{OutgoingEdges: []model.EdgeID{0}},
		{IncomingEdges: []model.EdgeID{0}},
	}
	packets := []model.Packet{newPacket(0, 0, []model.EdgeID{0})}

	net := model.NewNetwork(vertices, edges, packets)
	s := New(net)
	require.NoError(t, s.Run())

	require.NotNil(t, net.ArrivalTimes[0])
	assert.Equal(t, model.Time(1), *net.ArrivalTimes[0])
	assert.Equal(t, model.Time(1), net.Time)
}

func TestIA1B1(t *testing.T) {
	// single edge, length 1, capacity 1, four packets released at 2,3,4,5
	edges := []model.Edge{newLinearEdge(0, 1, rational.One)}
	vertices := []model.Vertex{
		{OutgoingEdges: []model.EdgeID{0}},
		{IncomingEdges: []model.EdgeID{0}},
	}
	packets := []model.Packet{
		newPacket(0, 2, []model.EdgeID{0}),
		newPacket(1, 3, []model.EdgeID{0}),
		newPacket(2, 4, []model.EdgeID{0}),
		newPacket(3, 5, []model.EdgeID{0}),
	}

	net := model.NewNetwork(vertices, edges, packets)
	s := New(net)
	require.NoError(t, s.Run())

	want := []model.Time{3, 4, 5, 6}
	for i, w := range want {
		require.NotNil(t, net.ArrivalTimes[i])
		assert.Equal(t, w, *net.ArrivalTimes[i])
	}
	assert.Equal(t, model.Time(6), net.Time)
}

func TestIA0_5B1(t *testing.T) {
	// single edge, length 2, capacity 1/2, four packets released at 3,5,7,9
	half := rational.MustNew(1, 2)
	edges := []model.Edge{newLinearEdge(0, 2, half)}
	vertices := []model.Vertex{
		{OutgoingEdges: []model.EdgeID{0}},
		{IncomingEdges: []model.EdgeID{0}},
	}
	packets := []model.Packet{
		newPacket(0, 3, []model.EdgeID{0}),
		newPacket(1, 5, []model.EdgeID{0}),
		newPacket(2, 7, []model.EdgeID{0}),
		newPacket(3, 9, []model.EdgeID{0}),
	}

	net := model.NewNetwork(vertices, edges, packets)
	s := New(net)
	require.NoError(t, s.Run())

	want := []model.Time{6, 8, 10, 12}
	for i, w := range want {
		require.NotNil(t, net.ArrivalTimes[i])
		assert.Equal(t, w, *net.ArrivalTimes[i])
	}
	assert.Equal(t, model.Time(12), net.Time)
}

func TestZipperFairnessTwoEqualStreams(t *testing.T) {
	// Two incoming edges (0, 1) feeding a shared outgoing edge (2) at vertex 1,
	// each carrying one packet released at time 0. Both packets leave their
	// length-1 edge at time 1 with equal zipper priority 1/1, so the tie-break
	// on the smaller edge_id puts packet 0 onto edge 2 first; edge 2 has
	// capacity 1, so packet 0 arrives at time 2 and packet 1 at time 3.
	edges := []model.Edge{
		{ID: 0, VFrom: 0, VTo: 1, Length: 1, AverageCapacity: rational.One, CurrentCapacity: rational.One},
		{ID: 1, VFrom: 2, VTo: 1, Length: 1, AverageCapacity: rational.One, CurrentCapacity: rational.One},
		{ID: 2, VFrom: 1, VTo: 3, Length: 1, AverageCapacity: rational.One, CurrentCapacity: rational.One},
	}
	vertices := []model.Vertex{
		{OutgoingEdges: []model.EdgeID{0}},
		{IncomingEdges: []model.EdgeID{0, 1}, OutgoingEdges: []model.EdgeID{2}},
		{OutgoingEdges: []model.EdgeID{1}},
		{IncomingEdges: []model.EdgeID{2}},
	}
	packets := []model.Packet{
		newPacket(0, 0, []model.EdgeID{0, 2}),
		newPacket(1, 0, []model.EdgeID{1, 2}),
	}
	net := model.NewNetwork(vertices, edges, packets)
	s := New(net)
	require.NoError(t, s.Run())

	require.NotNil(t, net.ArrivalTimes[0])
	require.NotNil(t, net.ArrivalTimes[1])
	assert.Equal(t, model.Time(2), *net.ArrivalTimes[0])
	assert.Equal(t, model.Time(3), *net.ArrivalTimes[1])
}

func TestZipperFairnessHalfCapacityBottleneck(t *testing.T) {
	// Modeled on spec.md §8's Y_a1_b0.5 scenario: two streams merge onto a
	// shared downstream edge whose capacity is 1/2, so the zipper must keep
	// interleaving packets across many steps instead of draining a queue in
	// one shot. Each side bursts 3 packets released simultaneously at the
	// full-capacity entry edges; the half-capacity edge 2 can only release
	// one packet every other step, and the zipper's round-robin fairness
	// (tie-break on smaller edge_id, recomputed priority (served+1)/L_j) makes
	// the two streams alternate perfectly: A,B,A,B,A,B at steps 4,6,8,10,12,14.
	half := rational.MustNew(1, 2)
	edges := []model.Edge{
		{ID: 0, VFrom: 0, VTo: 1, Length: 1, AverageCapacity: rational.One, CurrentCapacity: rational.One},
		{ID: 1, VFrom: 2, VTo: 1, Length: 1, AverageCapacity: rational.One, CurrentCapacity: rational.One},
		{ID: 2, VFrom: 1, VTo: 3, Length: 1, AverageCapacity: half, CurrentCapacity: half},
	}
	vertices := []model.Vertex{
		{OutgoingEdges: []model.EdgeID{0}},
		{IncomingEdges: []model.EdgeID{0, 1}, OutgoingEdges: []model.EdgeID{2}},
		{OutgoingEdges: []model.EdgeID{1}},
		{IncomingEdges: []model.EdgeID{2}},
	}
	packets := []model.Packet{
		newPacket(0, 1, []model.EdgeID{0, 2}), // A0
		newPacket(1, 1, []model.EdgeID{0, 2}), // A1
		newPacket(2, 1, []model.EdgeID{0, 2}), // A2
		newPacket(3, 1, []model.EdgeID{1, 2}), // B0
		newPacket(4, 1, []model.EdgeID{1, 2}), // B1
		newPacket(5, 1, []model.EdgeID{1, 2}), // B2
	}
	net := model.NewNetwork(vertices, edges, packets)
	s := New(net)
	require.NoError(t, s.Run())

	want := []model.Time{4, 8, 12, 6, 10, 14}
	for i, w := range want {
		require.NotNil(t, net.ArrivalTimes[i])
		assert.Equal(t, w, *net.ArrivalTimes[i])
	}
	assert.Equal(t, model.Time(14), net.Time)
}

func TestDeterminism(t *testing.T) {
	run := func() []model.Time {
		half := rational.MustNew(1, 2)
		edges := []model.Edge{newLinearEdge(0, 2, half)}
		vertices := []model.Vertex{
			{OutgoingEdges: []model.EdgeID{0}},
			{IncomingEdges: []model.EdgeID{0}},
		}
		packets := []model.Packet{
			newPacket(0, 3, []model.EdgeID{0}),
			newPacket(1, 5, []model.EdgeID{0}),
			newPacket(2, 7, []model.EdgeID{0}),
		}
		net := model.NewNetwork(vertices, edges, packets)
		s := New(net)
		require.NoError(t, s.Run())
		out := make([]model.Time, len(net.ArrivalTimes))
		for i, at := range net.ArrivalTimes {
			out[i] = *at
		}
		return out
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}
