package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// clientMessage is the inbound envelope. Draw messages carry arbitrary
// coordinate fields which are never stored, only relayed, so they are
// not decoded here.
type clientMessage struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Guess string `json:"guess,omitempty"`
}

type stateMessage struct {
	Type          string   `json:"type"`
	State         Snapshot `json:"state"`
	StatusMessage string   `json:"status_message,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type correctMessage struct {
	Type   string `json:"type"`
	Player string `json:"player"`
	Word   string `json:"word"`
}

type pongMessage struct {
	Type string `json:"type"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client pairs a websocket with its buffered outbound queue. Sends
// never block: a peer whose queue is full is treated as gone.
type client struct {
	conn *websocket.Conn
	send chan any
	id   string

	mu     sync.Mutex
	closed bool
}

func (c *client) trySend(v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- v:
		return true
	default:
		return false
	}
}

// forceClose shuts the outbound queue and the socket. Safe to call any
// number of times, including concurrently with trySend.
func (c *client) forceClose() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	_ = c.conn.Close()
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *client) readPump(cfg *Config, co *coordinator) {
	defer func() {
		co.Disconnect(c.id)
		c.forceClose()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		// Any inbound traffic counts as a ping.
		co.Touch(c.id)

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logf(cfg, "WS: Malformed message from %s: %v", c.id, err)
			c.trySend(errorMessage{
				Type:    "error",
				Message: "malformed message",
			})

			continue
		}

		switch msg.Type {
		case "join":
			c.handleJoin(cfg, co, msg)

		case "guess":
			c.handleGuess(co, msg)

		case "draw", "clear":
			// Strokes are relayed, never stored; a newly joined client
			// starts from a blank canvas.
			if !co.IsDrawer(c.id) {
				c.trySend(errorMessage{
					Type:    "error",
					Message: "not your turn to draw",
				})

				continue
			}

			co.Relay(c.id, json.RawMessage(data))

		case "ping":
			c.trySend(pongMessage{Type: "pong"})

		default:
			logf(cfg, "WS: Ignoring unknown message type %q from %s", msg.Type, c.id)
		}
	}
}

func (c *client) handleJoin(cfg *Config, co *coordinator, msg clientMessage) {
	if msg.Name == "" {
		c.trySend(errorMessage{
			Type:    "error",
			Message: "player name required",
		})

		return
	}

	// A rejoin under a name whose previous connection is still lingering
	// takes over: the stale socket is closed first, then the join runs
	// as a reconnection.
	if stale := co.ReleaseName(msg.Name, c.id); stale != nil {
		stale.forceClose()
	}

	if !co.Join(c.id, msg.Name) {
		c.trySend(errorMessage{
			Type:    "error",
			Message: "could not join game",
		})
	}
}

func (c *client) handleGuess(co *coordinator, msg clientMessage) {
	name := co.PlayerFor(c.id)
	if name == "" {
		c.trySend(errorMessage{
			Type:    "error",
			Message: "join before guessing",
		})

		return
	}

	snap := co.Snapshot()
	if !snap.Started || snap.Paused {
		c.trySend(errorMessage{
			Type:    "error",
			Message: "game is not active",
		})

		return
	}

	// A miss is silent; a hit broadcasts on its own.
	co.Guess(name, msg.Guess)
}

// classifyRole derives the connection's role slot once, at handshake
// time. The desktop client identifies itself via User-Agent; browsers
// are recognized by the Origin header they always send on websocket
// upgrades. Anything ambiguous counts as desktop.
func classifyRole(r *http.Request) Role {
	if strings.Contains(strings.ToLower(r.Header.Get("User-Agent")), "drawbox-desktop") {
		return RoleDesktop
	}

	if r.Header.Get("Origin") != "" {
		return RoleFrontend
	}

	return RoleDesktop
}

func serveWS(cfg *Config, co *coordinator) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		role := classifyRole(r)

		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "WS: Upgrade failed for %s: %v", realIP(r), err)

			return
		}

		c := &client{
			conn: wsConn,
			send: make(chan any, 8),
			id:   uuid.NewString(),
		}

		if !co.Connect(&conn{id: c.id, role: role, peer: c}) {
			_ = wsConn.WriteJSON(errorMessage{
				Type:    "error",
				Message: "a " + string(role) + " client is already connected",
			})
			_ = wsConn.Close()

			return
		}

		logf(cfg, "WS: Connection %s from %s as %s", c.id, realIP(r), role)

		go c.writePump()

		// Initial state so the client can render before joining.
		c.trySend(stateMessage{
			Type:  "state",
			State: co.Snapshot(),
		})

		c.readPump(cfg, co)
	}
}
