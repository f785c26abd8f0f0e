// Package httpapi serves the REST surface: match creation, state and replay
// queries, and the static catalogs the frontend needs.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"colosseum-lite/apps/server/internal/matchhub"
	"colosseum-lite/apps/server/internal/matchlog"
	"colosseum-lite/arena"
	"colosseum-lite/match"
	"colosseum-lite/sim"
)

type HTTPHandler struct {
	hub *matchhub.Hub

	// roundDelay paces matches created over REST so websocket watchers
	// can follow along.
	roundDelay time.Duration
}

type errorResponse struct {
	Error string `json:"error"`
}

type createMatchRequest struct {
	GameType        arena.GameType `json:"gameType"`
	RedPersonality  string         `json:"redPersonality"`
	BluePersonality string         `json:"bluePersonality"`
	Rounds          int            `json:"rounds"`
	Simulated       bool           `json:"simulated"`
}

func NewHTTPHandler(hub *matchhub.Hub) *HTTPHandler {
	return &HTTPHandler{
		hub:        hub,
		roundDelay: 2 * time.Second,
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/match/create", h.handleCreate)
	mux.HandleFunc("/api/match/", h.handleMatch)
	mux.HandleFunc("/api/matches", h.handleList)
	mux.HandleFunc("/api/game-types", h.handleGameTypes)
	mux.HandleFunc("/api/personalities", h.handlePersonalities)
}

func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GameType != "" && !req.GameType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown game type: "+string(req.GameType))
		return
	}

	var m *matchhub.Match
	if req.Simulated {
		m = h.hub.CreateSimulated(sim.Config{
			GameType:    req.GameType,
			TotalRounds: req.Rounds,
			RoundDelay:  h.roundDelay,
		})
	} else {
		m = h.hub.Create(match.Config{
			GameType:        req.GameType,
			RedPersonality:  req.RedPersonality,
			BluePersonality: req.BluePersonality,
			TotalRounds:     req.Rounds,
			RoundDelay:      h.roundDelay,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"matchId":  m.ID,
		"gameType": m.Config.GameType,
		"rounds":   m.Config.TotalRounds,
	})
}

// handleMatch routes /api/match/{id}/state and /api/match/{id}/replay.
func (h *HTTPHandler) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/match/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	matchID := parts[0]

	switch parts[1] {
	case "state":
		h.handleState(w, r, matchID)
	case "replay":
		h.handleReplay(w, r, matchID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *HTTPHandler) handleState(w http.ResponseWriter, r *http.Request, matchID string) {
	m := h.hub.Get(matchID)
	if m == nil {
		writeError(w, http.StatusNotFound, "unknown match: "+matchID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matchId":  m.ID,
		"finished": m.Finished(),
		"state":    m.Snapshot(),
	})
}

// handleReplay serves the full event log. Live matches answer from the hub
// backlog, older ones from the persistent store.
func (h *HTTPHandler) handleReplay(w http.ResponseWriter, r *http.Request, matchID string) {
	if m := h.hub.Get(matchID); m != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"matchId": m.ID,
			"events":  m.Events(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	events, err := h.hub.Store().Events(ctx, matchID)
	if err != nil {
		if errors.Is(err, matchlog.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "unknown match: "+matchID)
			return
		}
		writeError(w, http.StatusInternalServerError, "query match events failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matchId": matchID,
		"events":  events,
	})
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := h.hub.Store().List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query matches failed")
		return
	}
	if items == nil {
		items = []matchlog.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func (h *HTTPHandler) handleGameTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type gameTypeItem struct {
		ID            arena.GameType `json:"id"`
		Name          string         `json:"name"`
		DefaultRounds int            `json:"defaultRounds"`
	}
	items := make([]gameTypeItem, 0, len(arena.GameTypeDictionary))
	for _, gt := range []arena.GameType{arena.GameResourceWars, arena.GameNegotiation, arena.GameAuction, arena.GameGPUBidding} {
		items = append(items, gameTypeItem{
			ID:            gt,
			Name:          arena.GameTypeDictionary[gt],
			DefaultRounds: gt.DefaultRounds(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func (h *HTTPHandler) handlePersonalities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type personaItem struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Tagline string `json:"tagline,omitempty"`
	}
	var items []personaItem
	for _, id := range match.PersonaIDs() {
		p := match.PersonaByID(id)
		items = append(items, personaItem{ID: p.ID, Name: p.Name, Tagline: p.Tagline})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
