// Package ioadapter implements the input/output adapters of spec.md §6: a
// JSON instance loader (network.json + packets.json) and a results.json
// writer, plus an optional xlsx summary report.
package ioadapter

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"flowsim/internal/model"
	"flowsim/internal/rational"
	"flowsim/pkg/apperror"
)

// networkFile mirrors network.json's top-level shape.
type networkFile struct {
	Edges []edgeFile `json:"edges"`
}

type edgeFile struct {
	VFrom      string          `json:"v_from"`
	VTo        string          `json:"v_to"`
	TransitTime json.Number    `json:"transit_time"`
	Capacity   json.RawMessage `json:"capacity"`
}

// capacityObject is the {numerator, denominator} form of capacity.
type capacityObject struct {
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

type packetsFile struct {
	Packets []packetFile `json:"packets"`
}

type packetFile struct {
	CommodityID *int64   `json:"commodity_id,omitempty"`
	ReleaseTime int64    `json:"release_time"`
	Path        []string `json:"path"`
}

// VertexNames maps each loaded VertexID back to its original name, needed
// by the output adapter and xlsx report (spec.md §6 "a bidirectional
// name<->id map is returned for serialization").
type VertexNames []string

// LoadInstance reads network.json and packets.json from instanceDir and
// returns the constructed Network plus the vertex id-to-name table.
// instanceDir should carry a trailing separator per spec.md §6's CLI
// contract, but a missing one is tolerated (filepath.Join normalizes it).
func LoadInstance(instanceDir string) (*model.Network, VertexNames, error) {
	netRaw, err := readJSONFile[networkFile](filepath.Join(instanceDir, "network.json"))
	if err != nil {
		return nil, nil, err
	}
	pktRaw, err := readJSONFile[packetsFile](filepath.Join(instanceDir, "packets.json"))
	if err != nil {
		return nil, nil, err
	}

	nameToID, idToName := internVertexNames(netRaw.Edges)

	edges, vertices, edgeToID, err := buildGraph(netRaw.Edges, nameToID)
	if err != nil {
		return nil, nil, err
	}

	packets, err := buildPackets(pktRaw.Packets, nameToID, edgeToID)
	if err != nil {
		return nil, nil, err
	}

	return model.NewNetwork(vertices, edges, packets), idToName, nil
}

func readJSONFile[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeParseError,
			fmt.Sprintf("failed to read %s", path))
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeParseError,
			fmt.Sprintf("failed to parse %s", path))
	}
	return &v, nil
}

// internVertexNames assigns dense VertexIDs in first-seen order while
// scanning the edge list, per spec.md §6.
func internVertexNames(edges []edgeFile) (map[string]model.VertexID, VertexNames) {
	nameToID := make(map[string]model.VertexID)
	var idToName VertexNames
	intern := func(name string) {
		if _, ok := nameToID[name]; !ok {
			nameToID[name] = model.VertexID(len(idToName))
			idToName = append(idToName, name)
		}
	}
	for _, e := range edges {
		intern(e.VFrom)
		intern(e.VTo)
	}
	return nameToID, idToName
}

func buildGraph(edgeFiles []edgeFile, nameToID map[string]model.VertexID) ([]model.Edge, []model.Vertex, map[[2]model.VertexID]model.EdgeID, error) {
	vertices := make([]model.Vertex, len(nameToID))
	edges := make([]model.Edge, 0, len(edgeFiles))
	edgeToID := make(map[[2]model.VertexID]model.EdgeID)
	validation := apperror.NewValidationErrors()

	for i, ef := range edgeFiles {
		vFrom, ok := nameToID[ef.VFrom]
		if !ok {
			validation.AddError(apperror.CodeUnknownVertex, fmt.Sprintf("edge %d: unknown v_from %q", i, ef.VFrom))
			continue
		}
		vTo, ok := nameToID[ef.VTo]
		if !ok {
			validation.AddError(apperror.CodeUnknownVertex, fmt.Sprintf("edge %d: unknown v_to %q", i, ef.VTo))
			continue
		}

		length, err := parseTransitTime(ef.TransitTime)
		if err != nil {
			validation.Add(err.(*apperror.Error))
			continue
		}
		if length <= 0 {
			validation.AddError(apperror.CodeNonPositiveLength, fmt.Sprintf("edge %d: transit_time must be positive, got %d", i, length))
			continue
		}

		capacity, err := parseCapacity(ef.Capacity)
		if err != nil {
			validation.Add(err.(*apperror.Error))
			continue
		}
		if capacity.Numerator <= 0 {
			validation.AddError(apperror.CodeNonPositiveCapacity, fmt.Sprintf("edge %d: capacity must be positive", i))
			continue
		}

		key := [2]model.VertexID{vFrom, vTo}
		if _, dup := edgeToID[key]; dup {
			validation.AddError(apperror.CodeDuplicateEdge, fmt.Sprintf("edge %d: duplicate edge %s -> %s", i, ef.VFrom, ef.VTo))
			continue
		}

		edgeID := model.EdgeID(len(edges))
		edges = append(edges, model.Edge{
			ID:              edgeID,
			VFrom:           vFrom,
			VTo:             vTo,
			Length:          length,
			AverageCapacity: capacity,
			CurrentCapacity: capacity,
		})
		vertices[vFrom].OutgoingEdges = append(vertices[vFrom].OutgoingEdges, edgeID)
		vertices[vTo].IncomingEdges = append(vertices[vTo].IncomingEdges, edgeID)
		edgeToID[key] = edgeID
	}

	if validation.HasErrors() {
		return nil, nil, nil, validation
	}
	return edges, vertices, edgeToID, nil
}

// parseTransitTime rounds a JSON number to the nearest integer, per spec.md
// §6 ("positive integer or float that rounds to a positive integer") — a
// deliberate deviation from the original Rust loader, which truncates; see
// DESIGN.md. The result may be zero or negative; buildGraph rejects those.
func parseTransitTime(n json.Number) (int, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeParseError, "transit_time is not numeric")
	}
	return int(math.Round(f)), nil
}

// parseCapacity accepts either a {numerator, denominator} object or a bare
// positive numeric scalar (treated as numerator/1), per spec.md §6.
func parseCapacity(raw json.RawMessage) (rational.Fraction, error) {
	var obj capacityObject
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Denominator != 0 {
		f, err := rational.New(obj.Numerator, obj.Denominator)
		if err != nil {
			return rational.Fraction{}, err
		}
		return f, nil
	}

	var scalar json.Number
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return rational.Fraction{}, apperror.Wrap(err, apperror.CodeParseError, "capacity is neither a fraction object nor a numeric scalar")
	}
	fl, err := scalar.Float64()
	if err != nil {
		return rational.Fraction{}, apperror.Wrap(err, apperror.CodeParseError, "capacity scalar is not numeric")
	}
	// "treated as numerator/1" per spec.md §6: a bare scalar denotes an
	// integer capacity. Fractional capacities (e.g. 1/2) must use the
	// {numerator, denominator} object form instead.
	f, err := rational.New(int64(math.Round(fl)), 1)
	if err != nil {
		return rational.Fraction{}, err
	}
	return f, nil
}

func buildPackets(packetFiles []packetFile, nameToID map[string]model.VertexID, edgeToID map[[2]model.VertexID]model.EdgeID) ([]model.Packet, error) {
	packets := make([]model.Packet, 0, len(packetFiles))
	validation := apperror.NewValidationErrors()

	for i, pf := range packetFiles {
		if len(pf.Path) < 2 {
			validation.AddError(apperror.CodeShortPath, fmt.Sprintf("packet %d: path must have at least 2 vertices, got %d", i, len(pf.Path)))
			continue
		}

		vertexPath := make([]model.VertexID, len(pf.Path))
		ok := true
		for j, name := range pf.Path {
			vID, found := nameToID[name]
			if !found {
				validation.AddError(apperror.CodeUnknownVertex, fmt.Sprintf("packet %d: unknown vertex %q in path", i, name))
				ok = false
				break
			}
			vertexPath[j] = vID
		}
		if !ok {
			continue
		}

		edgePath := make([]model.EdgeID, 0, len(vertexPath)-1)
		for j := 0; j < len(vertexPath)-1; j++ {
			edgeID, found := edgeToID[[2]model.VertexID{vertexPath[j], vertexPath[j+1]}]
			if !found {
				validation.AddError(apperror.CodeDanglingEdgeRef, fmt.Sprintf("packet %d: no edge %s -> %s", i, pf.Path[j], pf.Path[j+1]))
				ok = false
				break
			}
			edgePath = append(edgePath, edgeID)
		}
		if !ok {
			continue
		}

		packets = append(packets, model.Packet{
			ID:          model.PacketID(len(packets)),
			CommodityID: pf.CommodityID,
			ReleaseTime: model.Time(pf.ReleaseTime),
			Path:        edgePath,
		})
	}

	if validation.HasErrors() {
		return nil, validation
	}
	return packets, nil
}
