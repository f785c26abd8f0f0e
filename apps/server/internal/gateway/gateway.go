// Package gateway bridges websocket clients to the match hub. One socket
// serves one match: the client either names an existing match in the URL to
// re-attach, or sends a start_match command to create one.
package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"colosseum-lite/apps/server/internal/matchhub"
	"colosseum-lite/arena"
	"colosseum-lite/match"
)

const (
	// startWait is how long a fresh socket may idle before sending
	// start_match.
	startWait = 30 * time.Second

	// keepAliveInterval paces keep_alive events while the match source is
	// quiet, so clients can tell a slow round from a dead connection.
	keepAliveInterval = 15 * time.Second

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// clientCommand is the inbound wire shape. Only start_match is understood.
type clientCommand struct {
	Type            string         `json:"type"`
	GameType        arena.GameType `json:"gameType,omitempty"`
	RedPersonality  string         `json:"redPersonality,omitempty"`
	BluePersonality string         `json:"bluePersonality,omitempty"`
	Rounds          int            `json:"rounds,omitempty"`
}

// Gateway manages websocket match sessions.
type Gateway struct {
	mu       sync.Mutex
	hub      *matchhub.Hub
	nextConn uint64
	conns    map[string]*Connection

	// roundDelay paces matches created over this gateway.
	roundDelay time.Duration
}

func New(hub *matchhub.Hub) *Gateway {
	return &Gateway{
		hub:        hub,
		conns:      make(map[string]*Connection),
		roundDelay: 2 * time.Second,
	}
}

// Connection is one websocket client session.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Gateway *Gateway

	commands chan clientCommand
	closed   chan struct{}
	once     sync.Once
}

// HandleMatchSocket upgrades the connection and runs the match session. The
// route is /ws/match for new matches and /ws/match/{id} for re-attach.
func (g *Gateway) HandleMatchSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConn++
	c := &Connection{
		ID:       fmt.Sprintf("conn_%d", g.nextConn),
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Gateway:  g,
		commands: make(chan clientCommand, 8),
		closed:   make(chan struct{}),
	}
	g.conns[c.ID] = c
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s", c.ID)
	go c.readPump()
	go c.writePump()
	go c.session(matchIDFromPath(r.URL.Path))
}

func matchIDFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/ws/match")
	rest = strings.Trim(rest, "/")
	if strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// session drives one match for the life of the socket.
func (c *Connection) session(matchID string) {
	defer c.shutdown()

	m := c.resolveMatch(matchID)
	if m == nil {
		return
	}

	backlog, events, cancel := m.Subscribe()
	defer cancel()

	for _, ev := range backlog {
		if !c.sendEvent(ev) {
			return
		}
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Source finished; the match_end event already went out.
				log.Printf("[Gateway] match %s stream complete for %s", m.ID, c.ID)
				return
			}
			if !c.sendEvent(ev) {
				return
			}
			keepAlive.Reset(keepAliveInterval)
		case <-keepAlive.C:
			if !c.sendEvent(arena.Event{Type: arena.EventKeepAlive}) {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// resolveMatch returns the match this session streams: an existing one when
// the client named an id, otherwise the one created by its start_match
// command.
func (c *Connection) resolveMatch(matchID string) *matchhub.Match {
	if matchID != "" {
		m := c.Gateway.hub.Get(matchID)
		if m == nil {
			c.sendError("unknown match: " + matchID)
			return nil
		}
		log.Printf("[Gateway] %s re-attached to match %s", c.ID, matchID)
		return m
	}

	deadline := time.NewTimer(startWait)
	defer deadline.Stop()

	for {
		select {
		case cmd := <-c.commands:
			if cmd.Type != "start_match" {
				c.sendError("expected start_match, got " + cmd.Type)
				continue
			}
			m := c.Gateway.hub.Create(match.Config{
				GameType:        cmd.GameType,
				RedPersonality:  cmd.RedPersonality,
				BluePersonality: cmd.BluePersonality,
				TotalRounds:     cmd.Rounds,
				RoundDelay:      c.Gateway.roundDelay,
			})
			log.Printf("[Gateway] %s started match %s", c.ID, m.ID)
			return m
		case <-deadline.C:
			log.Printf("[Gateway] %s sent no start_match within %s", c.ID, startWait)
			c.sendError("no start_match received")
			return nil
		case <-c.closed:
			return nil
		}
	}
}

func (c *Connection) sendEvent(ev arena.Event) bool {
	data, err := ev.Encode()
	if err != nil {
		log.Printf("[Gateway] encode event: %v", err)
		return true
	}
	select {
	case c.Send <- data:
		return true
	case <-c.closed:
		return false
	}
}

func (c *Connection) sendError(msg string) {
	c.sendEvent(arena.Event{Type: arena.EventError, Message: msg})
}

func (c *Connection) readPump() {
	defer c.shutdown()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(message, &cmd); err != nil || cmd.Type == "" {
			log.Printf("[Gateway] dropping malformed command from %s", c.ID)
			c.sendError("invalid message format")
			continue
		}
		select {
		case c.commands <- cmd:
		default:
			log.Printf("[Gateway] command buffer full for %s", c.ID)
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			// Drain queued events so match_end reaches the client before
			// the close frame.
			for {
				select {
				case message := <-c.Send:
					c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.Conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// shutdown tears the session down exactly once.
func (c *Connection) shutdown() {
	c.once.Do(func() {
		close(c.closed)
		c.Gateway.removeConnection(c)
	})
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns, c.ID)
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.conns))
}
