// Package sim implements the per-time-step packet routing simulator: a
// three-phase fixed-point update (determine-leaving, node-transitions,
// record-arrivals) over a fluid-queue / point-queue network model.
package sim

import (
	"container/heap"

	"flowsim/internal/model"
	"flowsim/internal/rational"
	"flowsim/pkg/apperror"
)

// Stats accumulates run-level counters for the metrics/reporting layer,
// shaped after the teacher's timeSimulationStats running-accumulator
// pattern (time_simulation.go): cheap, allocation-free updates per step.
type Stats struct {
	StepsExecuted      int
	ZipperMerges       int
	EdgeDispatchCounts []int // indexed by EdgeID, allocated with len(edges) entries
}

// newStats allocates a Stats sized to the network's edge count.
func newStats(numEdges int) *Stats {
	return &Stats{EdgeDispatchCounts: make([]int, numEdges)}
}

// Simulator runs the three-phase time step to completion over a model.Network.
// It keeps one reusable scratch buffer, the determine-leaving buffer, across
// steps. The per-outgoing-edge stream slices of nodeTransitions are not
// reused: they are allocated afresh for every outgoing edge in every step.
type Simulator struct {
	net   *model.Network
	Stats *Stats

	leavingBuffer []model.PacketID // reused scratch for determine-leaving
}

// New constructs a Simulator over net, ready to Run.
func New(net *model.Network) *Simulator {
	return &Simulator{
		net:   net,
		Stats: newStats(len(net.Edges)),
	}
}

// Run executes the simulation to completion (spec.md §4.6 main loop).
func (s *Simulator) Run() error {
	for !s.net.AllArrived() {
		if err := s.determineLeaving(); err != nil {
			return err
		}
		if err := s.nodeTransitions(); err != nil {
			return err
		}
		if err := s.recordArrivals(); err != nil {
			return err
		}
		s.Stats.StepsExecuted++
		s.timestep()
	}
	return nil
}

// determineLeaving implements spec.md §4.3: for each edge, in EdgeID order,
// move eligible packets from the front of the waiting queue into the
// leaving queue respecting floor(current_capacity), then roll the capacity
// accumulator forward.
func (s *Simulator) determineLeaving() error {
	for edgeID := range s.net.Edges {
		edge := &s.net.Edges[edgeID]
		queue := s.net.EdgeQueues[edgeID]

		s.leavingBuffer = s.leavingBuffer[:0]
		for _, packetID := range queue {
			packet := &s.net.Packets[packetID]
			if packet.EntranceTime == nil {
				return apperror.New(apperror.CodeQueueLengthMismatch,
					"packet in waiting queue has no entrance time")
			}
			leavingTime := *packet.EntranceTime + model.Time(edge.Length)
			if leavingTime > s.net.Time {
				break
			}
			s.leavingBuffer = append(s.leavingBuffer, packetID)
		}

		if len(s.net.LeavingQueues[edgeID]) != 0 {
			return apperror.New(apperror.CodeQueueLengthMismatch,
				"leaving queue must be empty at the start of determine-leaving")
		}
		leaving := s.net.LeavingQueues[edgeID]
		drained := 0
		for len(s.leavingBuffer) > 0 {
			nLeaving := rational.Fraction{Numerator: int64(len(leaving) + 1), Denominator: 1}
			if nLeaving.Cmp(edge.CurrentCapacity) > 0 {
				break
			}
			leaving = append(leaving, s.leavingBuffer[0])
			s.Stats.EdgeDispatchCounts[edgeID]++
			s.leavingBuffer = s.leavingBuffer[1:]
			drained++
		}
		s.net.LeavingQueues[edgeID] = leaving
		s.net.EdgeQueues[edgeID] = queue[drained:]

		if len(s.leavingBuffer) == 0 {
			edge.CurrentCapacity = edge.AverageCapacity
		} else {
			floorPart := rational.Fraction{Numerator: edge.CurrentCapacity.Floor(), Denominator: 1}
			sum, err := edge.AverageCapacity.Add(edge.CurrentCapacity)
			if err != nil {
				return err
			}
			next, err := sum.Sub(floorPart)
			if err != nil {
				return err
			}
			edge.CurrentCapacity = next
		}
	}
	return nil
}

// incomingStream is one contributor to a zipper merge at an outgoing edge:
// the edge it came from (model.EnteringEdgeID's sentinel for the synthetic
// entering stream) and its FIFO of packets, in arrival order.
type incomingStream struct {
	edgeID  model.EdgeID
	packets []model.PacketID
}

// nodeTransitions implements spec.md §4.4: for each vertex in VertexId
// order, for each outgoing edge in stored order, partition incoming leaving
// queues plus the synthetic entering stream, then zipper-merge them onto
// the outgoing edge's waiting queue.
func (s *Simulator) nodeTransitions() error {
	enteringEdgeID := model.EnteringEdgeID(len(s.net.Edges))

	for vID := range s.net.Vertices {
		vertex := &s.net.Vertices[vID]
		for _, outgoingEdge := range vertex.OutgoingEdges {
			streams := make([]incomingStream, 0, len(vertex.IncomingEdges)+1)

			for _, inEdge := range vertex.IncomingEdges {
				var toOutgoing, remaining []model.PacketID
				for _, packetID := range s.net.LeavingQueues[inEdge] {
					packet := &s.net.Packets[packetID]
					nextEdge, ok := packet.NextEdge()
					if ok && nextEdge == outgoingEdge {
						toOutgoing = append(toOutgoing, packetID)
						next := *packet.PathPosition + 1
						packet.PathPosition = &next
					} else {
						remaining = append(remaining, packetID)
					}
				}
				s.net.LeavingQueues[inEdge] = remaining
				if len(toOutgoing) > 0 {
					streams = append(streams, incomingStream{edgeID: inEdge, packets: toOutgoing})
				}
			}

			var entering []model.PacketID
			for pID := range s.net.Packets {
				packet := &s.net.Packets[pID]
				if packet.ReleaseTime == s.net.Time && packet.Path[0] == outgoingEdge {
					if packet.PathPosition != nil {
						return apperror.New(apperror.CodeMisroutedPacket,
							"packet entering network already had a path position")
					}
					zero := 0
					packet.PathPosition = &zero
					entering = append(entering, model.PacketID(pID))
				}
			}
			if len(entering) > 0 {
				streams = append(streams, incomingStream{edgeID: enteringEdgeID, packets: entering})
			}

			if err := s.zipperMerge(outgoingEdge, streams); err != nil {
				return err
			}
		}
	}
	return nil
}

// zipperMerge performs spec.md §4.4 step C: build one max-priority heap
// element per non-empty stream with priority 1/L_j, and repeatedly dispatch
// the front packet of the highest-priority stream onto outgoingEdge's
// waiting queue, recomputing that stream's priority as (served+1)/L_j until
// it is exhausted.
func (s *Simulator) zipperMerge(outgoingEdge model.EdgeID, streams []incomingStream) error {
	originalLengths := make([]int64, len(streams))
	h := make(streamHeap, 0, len(streams))
	for queueID, stream := range streams {
		originalLengths[queueID] = int64(len(stream.packets))
		if len(stream.packets) == 0 {
			continue
		}
		priority, err := rational.New(1, originalLengths[queueID])
		if err != nil {
			return err
		}
		h = append(h, heapElement{priority: priority, edgeID: stream.edgeID, queueID: queueID})
	}
	heap.Init(&h)

	for h.Len() > 0 {
		top := heap.Pop(&h).(heapElement)
		if top.priority.Cmp(rational.One) > 0 {
			return apperror.New(apperror.CodePriorityOverflow,
				"zipper priority exceeded 1")
		}
		s.Stats.ZipperMerges++

		stream := &streams[top.queueID]
		packetID := stream.packets[0]
		stream.packets = stream.packets[1:]

		s.net.EdgeQueues[outgoingEdge] = append(s.net.EdgeQueues[outgoingEdge], packetID)
		t := s.net.Time
		s.net.Packets[packetID].EntranceTime = &t

		if len(stream.packets) > 0 {
			served := originalLengths[top.queueID] - int64(len(stream.packets)) + 1
			newPriority, err := rational.New(served, originalLengths[top.queueID])
			if err != nil {
				return err
			}
			heap.Push(&h, heapElement{priority: newPriority, edgeID: top.edgeID, queueID: top.queueID})
		}
	}
	return nil
}

// recordArrivals implements spec.md §4.5: every packet still in a leaving
// queue after node-transitions must be at its path end; record its arrival
// time once and clear all leaving queues.
func (s *Simulator) recordArrivals() error {
	for edgeID := range s.net.LeavingQueues {
		for _, packetID := range s.net.LeavingQueues[edgeID] {
			packet := &s.net.Packets[packetID]
			if !packet.AtPathEnd() {
				return apperror.New(apperror.CodeMisroutedPacket,
					"packet in leaving queue is not at its path end")
			}
			if s.net.ArrivalTimes[packetID] != nil {
				return apperror.New(apperror.CodeDoubleArrival,
					"packet arrived more than once")
			}
			t := s.net.Time
			s.net.ArrivalTimes[packetID] = &t
			s.net.PacketsArrived++
		}
	}
	for edgeID := range s.net.LeavingQueues {
		s.net.LeavingQueues[edgeID] = s.net.LeavingQueues[edgeID][:0]
	}
	return nil
}

// timestep advances time only while packets remain to arrive, matching the
// original model's conditional increment exactly (network.rs timestep): the
// step that completes all arrivals does not bump time again.
func (s *Simulator) timestep() {
	if !s.net.AllArrived() {
		s.net.Time++
	}
}
