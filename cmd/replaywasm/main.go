//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"colosseum-lite/replay"
)

type loadResponse struct {
	OK      bool   `json:"ok"`
	MatchID string `json:"matchId,omitempty"`
	Length  int    `json:"length,omitempty"`
	Error   string `json:"error,omitempty"`
}

type snapshotResponse struct {
	OK       bool            `json:"ok"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func main() {
	js.Global().Set("__replayLoad", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return mustJSON(loadResponse{OK: false, Error: "missing event log payload"})
		}
		return mustJSON(handleLoad(args[0].String()))
	}))
	js.Global().Set("__replaySnapshotAt", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return mustJSON(snapshotResponse{OK: false, Error: "expected (log, position)"})
		}
		return mustJSON(handleSnapshotAt(args[0].String(), args[1].Int()))
	}))

	select {}
}

func handleLoad(raw string) loadResponse {
	l, err := replay.ParseLog([]byte(raw))
	if err != nil {
		return loadResponse{OK: false, Error: err.Error()}
	}
	return loadResponse{OK: true, MatchID: l.MatchID(), Length: len(l)}
}

func handleSnapshotAt(raw string, pos int) snapshotResponse {
	l, err := replay.ParseLog([]byte(raw))
	if err != nil {
		return snapshotResponse{OK: false, Error: err.Error()}
	}
	snap := replay.SnapshotAt(l, pos)
	data, err := json.Marshal(snap)
	if err != nil {
		return snapshotResponse{OK: false, Error: err.Error()}
	}
	return snapshotResponse{OK: true, Snapshot: data}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"ok":false,"error":"encode response failed"}`
	}
	return string(data)
}
