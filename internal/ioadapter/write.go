package ioadapter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"flowsim/internal/model"
	"flowsim/pkg/apperror"
)

// resultsFile mirrors results.json's shape per spec.md §6. CommodityIDs and
// TravelTimes are omitted entirely (via omitempty on a nil slice) when no
// packet carries a commodity_id — spec.md's "when commodity info is
// present" condition, a deliberate deviation from the original Rust writer,
// which always emits them; see DESIGN.md.
type resultsFile struct {
	RunID        string   `json:"run_id,omitempty"`
	ArrivalTimes []*int64 `json:"arrival_times"`
	CommodityIDs []int64  `json:"commodity_ids,omitempty"`
	TravelTimes  []*int64 `json:"travel_times,omitempty"`
}

// WriteResults serializes the final network state to <instanceDir>/results.json.
func WriteResults(instanceDir, runID string, net *model.Network) error {
	out := resultsFile{
		RunID:        runID,
		ArrivalTimes: make([]*int64, len(net.Packets)),
	}

	hasCommodity := false
	for _, p := range net.Packets {
		if p.CommodityID != nil {
			hasCommodity = true
			break
		}
	}

	if hasCommodity {
		out.CommodityIDs = make([]int64, len(net.Packets))
		out.TravelTimes = make([]*int64, len(net.Packets))
	}

	for i, p := range net.Packets {
		if at := net.ArrivalTimes[i]; at != nil {
			v := int64(*at)
			out.ArrivalTimes[i] = &v
			if hasCommodity {
				travel := v - int64(p.ReleaseTime)
				out.TravelTimes[i] = &travel
			}
		}
		if hasCommodity && p.CommodityID != nil {
			out.CommodityIDs[i] = *p.CommodityID
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return apperror.Wrap(err, apperror.CodeParseError, "failed to marshal results.json")
	}

	path := filepath.Join(instanceDir, "results.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperror.Wrap(err, apperror.CodeParseError, fmt.Sprintf("failed to write %s", path))
	}
	return nil
}
