/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package knowr

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the part of a session that survives restarts.
type Snapshot struct {
	Players  []Player
	TargetID string
	Scores   map[string]int
}

type snapshotJSON struct {
	Players  []Player       `json:"players"`
	TargetID *string        `json:"targetId"`
	Scores   map[string]int `json:"scores"`
}

// EncodeSnapshot renders snap as
// {"players":[{"id","name"}],"targetId":string|null,"scores":{id:n}}.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	out := snapshotJSON{
		Players: snap.Players,
		Scores:  snap.Scores,
	}
	if out.Players == nil {
		out.Players = []Player{}
	}
	if out.Scores == nil {
		out.Scores = map[string]int{}
	}
	if snap.TargetID != "" {
		out.TargetID = &snap.TargetID
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return data, nil
}

// DecodeSnapshot parses data written by EncodeSnapshot. Missing fields
// default to no players, no target and no scores.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := Snapshot{
		Players: in.Players,
		Scores:  in.Scores,
	}
	if snap.Players == nil {
		snap.Players = []Player{}
	}
	if snap.Scores == nil {
		snap.Scores = map[string]int{}
	}
	if in.TargetID != nil {
		snap.TargetID = *in.TargetID
	}

	return snap, nil
}
