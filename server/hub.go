package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sandbox/core"
	"sandbox/logging"
	"sandbox/physics"
	"sandbox/sim"
)

// ErrUnknownOp is returned for commands with an op the hub does not know
var ErrUnknownOp = errors.New("unknown command op")

// Message is the envelope for every frame in both directions
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type EntityData struct {
	Handle   uint64     `json:"handle"`
	Kind     string     `json:"kind"`
	Position [3]float32 `json:"position"`
	Rotation [4]float32 `json:"rotation"`
}

type SnapshotData struct {
	Run         string       `json:"run"`
	Step        uint64       `json:"step"`
	SolveTimeMs float64      `json:"solveTimeMs"`
	Entities    []EntityData `json:"entities"`
}

// CommandData is an inbound command addressed by entity handle
type CommandData struct {
	Op       string     `json:"op"`
	Handle   uint64     `json:"handle"`
	Vector   [3]float32 `json:"vector"`
	BodyType string     `json:"bodyType,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

const writeWait = 5 * time.Second

// Hub streams world snapshots to websocket clients and forwards their
// commands to the scheduler
type Hub struct {
	registry *sim.Registry
	link     *sim.Link
	log      logging.Logger
	interval time.Duration
	run      uuid.UUID

	upgrader websocket.Upgrader

	clientsMutex sync.RWMutex
	clients      map[uuid.UUID]*client
}

// NewHub creates a hub broadcasting every interval
func NewHub(registry *sim.Registry, link *sim.Link, interval time.Duration, log logging.Logger) *Hub {
	if log == nil {
		log = logging.Nop()
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	run := uuid.New()
	return &Hub{
		registry: registry,
		link:     link,
		log:      log.With("run", run.String()),
		interval: interval,
		run:      run,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]*client),
	}
}

// RunID returns the id stamped on every snapshot of this process
func (h *Hub) RunID() uuid.UUID { return h.run }

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Handler serves /ws and a plain JSON /snapshot
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/snapshot", h.serveSnapshot)
	return mux
}

// Run sends a snapshot to every client every interval until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-ticker.C:
			h.broadcastSnapshot()
		}
	}
}

func (h *Hub) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	raw, err := json.Marshal(h.createSnapshot())
	if err != nil {
		h.log.Warn("snapshot encode failed", "error", err)
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &client{id: uuid.New(), conn: conn}
	log := h.log.With("client", c.id.String())
	h.clientsMutex.Lock()
	h.clients[c.id] = c
	h.clientsMutex.Unlock()
	defer func() {
		h.clientsMutex.Lock()
		delete(h.clients, c.id)
		h.clientsMutex.Unlock()
	}()
	log.Info("client connected", "remote", r.RemoteAddr)

	// a snapshot that fails to encode is skipped; the next broadcast retries
	if msg, err := snapshotMessage(h.createSnapshot()); err != nil {
		log.Warn("initial snapshot encode failed", "error", err)
	} else if err := c.send(msg); err != nil {
		log.Warn("initial snapshot failed", "error", err)
		return
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", "error", err)
			}
			return
		}
		reply := h.handleMessage(r.Context(), msg)
		if err := c.send(reply); err != nil {
			log.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func (h *Hub) handleMessage(ctx context.Context, msg Message) Message {
	if msg.Type != "command" {
		return errorMessage(fmt.Errorf("unknown message type %q", msg.Type))
	}
	var data CommandData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return errorMessage(fmt.Errorf("bad command: %w", err))
	}
	cmd, err := h.resolve(data)
	if err != nil {
		return errorMessage(err)
	}
	if err := h.link.SubmitCommand(ctx, cmd); err != nil {
		return errorMessage(err)
	}
	return Message{Type: "ack"}
}

// resolve turns an inbound command into a sim command against the entity's body
func (h *Hub) resolve(data CommandData) (sim.Command, error) {
	handle := core.Handle(data.Handle)
	e, ok := h.registry.Lookup(handle)
	if !ok {
		return nil, fmt.Errorf("%v: %w", handle, sim.ErrNotFound)
	}
	vec := mgl32.Vec3(data.Vector)
	switch data.Op {
	case "impulse":
		return sim.Impulse{Vector: vec, Body: e.Body}, nil
	case "translate":
		return sim.Translate{Vector: vec, Body: e.Body}, nil
	case "setBodyType":
		t, err := physics.ParseBodyType(data.BodyType)
		if err != nil {
			return nil, err
		}
		return sim.SetBodyType{Type: t, Body: e.Body}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, data.Op)
}

func (h *Hub) createSnapshot() SnapshotData {
	states := h.registry.Snapshot()
	snap := SnapshotData{
		Run:      h.run.String(),
		Entities: make([]EntityData, len(states)),
	}
	if st, ok := h.link.Latest(); ok {
		snap.Step = st.Step
		snap.SolveTimeMs = float64(st.SolveTime.Microseconds()) / 1000
	}
	for i, s := range states {
		snap.Entities[i] = EntityData{
			Handle:   uint64(s.Handle),
			Kind:     s.Kind.String(),
			Position: [3]float32(s.Position),
			Rotation: [4]float32{s.Rotation.V[0], s.Rotation.V[1], s.Rotation.V[2], s.Rotation.W},
		}
	}
	return snap
}

func (h *Hub) broadcastSnapshot() {
	h.clientsMutex.RLock()
	if len(h.clients) == 0 {
		h.clientsMutex.RUnlock()
		return
	}
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.clientsMutex.RUnlock()

	msg, err := snapshotMessage(h.createSnapshot())
	if err != nil {
		h.log.Warn("snapshot encode failed", "error", err)
		return
	}
	for _, c := range targets {
		if err := c.send(msg); err != nil {
			h.log.Warn("websocket write failed", "client", c.id.String(), "error", err)
			c.conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	for _, c := range h.clients {
		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		c.mu.Unlock()
		c.conn.Close()
	}
}

// snapshotMessage fails when a pose holds NaN or Inf, which JSON cannot carry
func snapshotMessage(s SnapshotData) (Message, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return Message{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return Message{Type: "snapshot", Data: raw}, nil
}

var internalError = json.RawMessage(`{"message":"internal error"}`)

func errorMessage(err error) Message {
	raw, mErr := json.Marshal(ErrorData{Message: err.Error()})
	if mErr != nil {
		raw = internalError
	}
	return Message{Type: "error", Data: raw}
}
