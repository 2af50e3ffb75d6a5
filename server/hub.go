package server

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"strconv"

	channerics "github.com/niceyeti/channerics/channels"

	"durb/engine"
)

// Hub owns exactly one engine.Match and is the single goroutine that ever
// calls its methods, per spec §5's concurrency model: inbound commands and
// the tick ticker are merged onto one select loop, so a command and a tick
// can never interleave. Connected players register a playerConn to receive
// the hub's broadcasts; Hub never touches a websocket directly (see
// client.go).
type Hub struct {
	match *engine.Match

	commands   chan inboundCommand
	register   chan *playerConn
	unregister chan *playerConn

	players map[engine.PlayerID]*playerConn
}

type inboundCommand struct {
	player  engine.PlayerID
	typ     string
	payload []byte
}

// NewHub wires a Hub around a freshly constructed match. Players must
// register their playerConn (via Register) before the hub will route
// inbound commands to them.
func NewHub(match *engine.Match) *Hub {
	return &Hub{
		match:      match,
		commands:   make(chan inboundCommand, 64),
		register:   make(chan *playerConn),
		unregister: make(chan *playerConn),
		players:    make(map[engine.PlayerID]*playerConn),
	}
}

// Run drives the match's command/tick loop until ctx is cancelled or the
// match ends. channerics.NewTicker gives a done-aware ticker channel,
// rather than a raw time.Ticker that callers would have to remember to
// Stop.
func (h *Hub) Run(ctx context.Context) {
	ticks := channerics.NewTicker(ctx.Done(), h.match.Settings.TickInterval)

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.players[conn.player] = conn
			h.sendInit(conn)

		case conn := <-h.unregister:
			if h.players[conn.player] == conn {
				delete(h.players, conn.player)
			}

		case cmd := <-h.commands:
			h.dispatch(cmd)

		case <-ticks:
			h.match.Tick()
			h.broadcastTick()
			h.flushCaptures()
			h.flushEliminations()
			if h.match.GameEnded {
				h.broadcast(gameOverMessage{Type: "gameOver", WinnerID: h.match.WinnerID})
				return
			}
		}
	}
}

// Submit enqueues an inbound command frame for the hub's own goroutine to
// process; called from a playerConn's read pump, never executed inline.
func (h *Hub) Submit(player engine.PlayerID, typ string, payload []byte) {
	h.commands <- inboundCommand{player: player, typ: typ, payload: payload}
}

func (h *Hub) Register(conn *playerConn) {
	h.register <- conn
}

func (h *Hub) Unregister(conn *playerConn) {
	h.unregister <- conn
}

func (h *Hub) dispatch(cmd inboundCommand) {
	switch cmd.typ {
	case "pickStartingNode":
		var p pickStartingNodePayload
		if !decodeInto(cmd.payload, &p) {
			return
		}
		if err := h.match.PickStartingNode(cmd.player, p.NodeID); err != nil {
			h.sendTo(cmd.player, newErrorMessage("pickStartingNodeError", err))
			return
		}

	case "toggleEdge":
		var p toggleEdgePayload
		if !decodeInto(cmd.payload, &p) {
			return
		}
		if err := h.match.ToggleEdge(cmd.player, p.EdgeID); err != nil {
			h.sendTo(cmd.player, newErrorMessage("toggleEdgeError", err))
			return
		}
		if e, ok := h.match.Store.Edges[p.EdgeID]; ok {
			h.broadcast(edgeUpdatedMessage{Type: "edgeUpdated", Edge: viewEdge(e)})
		}

	case "reverseEdge":
		var p reverseEdgePayload
		if !decodeInto(cmd.payload, &p) {
			return
		}
		if err := h.match.ReverseEdge(cmd.player, p.EdgeID, p.Cost); err != nil {
			h.sendTo(cmd.player, newErrorMessage("reverseEdgeError", err))
			return
		}
		if e, ok := h.match.Store.Edges[p.EdgeID]; ok {
			h.broadcastWithActorCost(cmd.player, edgeReversedMessage{Type: "edgeReversed", Edge: viewEdge(e)}, h.bridgeCost(e))
		}

	case "buildBridge":
		var p buildBridgePayload
		if !decodeInto(cmd.payload, &p) {
			return
		}
		e, err := h.match.BuildBridge(cmd.player, p.FromNodeID, p.ToNodeID, p.Cost)
		if err != nil {
			h.sendTo(cmd.player, newErrorMessage("bridgeError", err))
			return
		}
		cost := h.bridgeCost(e)
		for id, conn := range h.players {
			out := newEdgeMessage{Type: "newEdge", Edge: viewEdge(e)}
			if id == cmd.player {
				out.Cost = cost
			}
			conn.send(out)
		}

	case "redirectEnergy":
		var p redirectEnergyPayload
		if !decodeInto(cmd.payload, &p) {
			return
		}
		if err := h.match.RedirectEnergy(cmd.player, p.TargetNodeID); err != nil {
			h.sendTo(cmd.player, newErrorMessage("redirectEnergyError", err))
			return
		}
		for _, id := range h.match.Store.SortedEdgeIDs() {
			e := h.match.Store.Edges[id]
			h.broadcast(edgeUpdatedMessage{Type: "edgeUpdated", Edge: viewEdge(e)})
		}

	case "destroyNode":
		var p destroyNodePayload
		if !decodeInto(cmd.payload, &p) {
			return
		}
		removed, err := h.match.DestroyNode(cmd.player, p.NodeID)
		if err != nil {
			h.sendTo(cmd.player, newErrorMessage("destroyError", err))
			return
		}
		h.broadcast(nodeDestroyedMessage{Type: "nodeDestroyed", NodeID: p.NodeID, RemovedEdges: removed})

	case "toggleAutoExpand":
		if err := h.match.ToggleAutoExpand(cmd.player); err != nil {
			h.sendTo(cmd.player, newErrorMessage("toggleAutoExpandError", err))
		}

	case "quitGame":
		if err := h.match.QuitGame(cmd.player); err != nil {
			h.sendTo(cmd.player, newErrorMessage("quitGameError", err))
			return
		}
		if h.match.GameEnded {
			h.broadcast(gameOverMessage{Type: "gameOver", WinnerID: h.match.WinnerID})
		}

	default:
		log.Printf("hub: unrecognized command type %q from player %d", cmd.typ, cmd.player)
	}
}

func (h *Hub) sendInit(conn *playerConn) {
	m := h.match
	nodes := make([]nodeView, 0, len(m.Store.Nodes))
	for _, id := range m.Store.SortedNodeIDs() {
		nodes = append(nodes, viewNode(m.Store.Nodes[id]))
	}
	edges := make([]edgeView, 0, len(m.Store.Edges))
	for _, id := range m.Store.SortedEdgeIDs() {
		edges = append(edges, viewEdge(m.Store.Edges[id]))
	}
	capitalIDs := make([]engine.NodeID, 0, len(m.CapitalNodes))
	for id := range m.CapitalNodes {
		capitalIDs = append(capitalIDs, id)
	}

	conn.send(initMessage{
		Type:     "init",
		PlayerID: conn.player,
		Nodes:    nodes,
		Edges:    edges,
		Phase:    m.Phase,
		Settings: settingsView{
			TickIntervalMS:  m.Settings.TickIntervalMS,
			GameDurationSec: m.Settings.GameDurationSec,
			JuiceMax:        m.Settings.JuiceMax,
			WinThreshold:    m.WinThreshold(),
			TotalNodes:      len(m.Store.Nodes),
		},
		CapitalIDs: capitalIDs,
	})
}

func (h *Hub) broadcastTick() {
	m := h.match
	nodes := make([]nodeView, 0, len(m.Store.Nodes))
	for _, id := range m.Store.SortedNodeIDs() {
		nodes = append(nodes, viewNode(m.Store.Nodes[id]))
	}
	edges := make([]edgeTickView, 0, len(m.Store.Edges))
	for _, id := range m.Store.SortedEdgeIDs() {
		edges = append(edges, viewEdgeTick(m.Store.Edges[id]))
	}
	gold := make(map[string]float64, len(m.Players))
	for _, id := range m.Players {
		gold[playerKey(id.ID)] = m.Gold(id.ID)
	}
	nodeCounts := make(map[string]int, len(m.Players))
	for id, count := range m.NodeCounts() {
		nodeCounts[playerKey(id)] = count
	}
	capitalCounts := make(map[string]int, len(m.Players))
	for id, count := range m.CapitalCounts() {
		capitalCounts[playerKey(id)] = count
	}

	h.broadcast(tickMessage{
		Type:          "tick",
		TickCount:     m.TickCount,
		Phase:         m.Phase,
		Nodes:         nodes,
		Edges:         edges,
		Gold:          gold,
		NodeCounts:    nodeCounts,
		CapitalCounts: capitalCounts,
		WinThreshold:  m.WinThreshold(),
	})
}

func (h *Hub) flushCaptures() {
	for _, c := range h.match.DrainCaptures() {
		h.broadcast(nodeCapturedMessage{
			Type:        "nodeCaptured",
			NodeID:      c.NodeID,
			NewOwner:    c.NewOwner,
			PriorOwner:  c.PriorOwner,
			GoldAwarded: c.GoldAwarded,
		})
	}
}

func (h *Hub) flushEliminations() {
	for range h.match.DrainEliminations() {
		// Elimination is observable through the next tick's node-ownership
		// counts and gold map; no dedicated wire message is named in
		// SPEC_FULL.md §4.8, so eliminations are drained to keep the queue
		// from growing unbounded without broadcasting a redundant event.
	}
}

func (h *Hub) broadcast(msg interface{}) {
	for _, conn := range h.players {
		conn.send(msg)
	}
}

// broadcastWithActorCost includes the gold cost only in the message sent
// to the acting player, omitting it for everyone else.
func (h *Hub) broadcastWithActorCost(actor engine.PlayerID, msg edgeReversedMessage, cost float64) {
	for id, conn := range h.players {
		out := msg
		if id == actor {
			out.Cost = cost
		}
		conn.send(out)
	}
}

// bridgeCost recomputes the distance-based cost actually charged for a
// just-built bridge, so the acting player's newEdge message can report it
// without BuildBridge itself returning a second value for a display-only
// concern.
func (h *Hub) bridgeCost(e *engine.Edge) float64 {
	src, ok1 := h.match.Store.Nodes[e.Source]
	tgt, ok2 := h.match.Store.Nodes[e.Target]
	if !ok1 || !ok2 {
		return 0
	}
	dist := math.Hypot(tgt.X-src.X, tgt.Y-src.Y)
	return dist * h.match.Settings.BridgeCostPerUnitDistance
}

func (h *Hub) sendTo(player engine.PlayerID, msg interface{}) {
	if conn, ok := h.players[player]; ok {
		conn.send(msg)
	}
}

func playerKey(id engine.PlayerID) string {
	return strconv.Itoa(int(id))
}

// decodeInto unmarshals a command payload, logging and discarding the
// command on malformed JSON rather than propagating a decode error into the
// match — a malformed frame is a client bug, not a gameplay failure with
// its own error kind.
func decodeInto(payload []byte, dst interface{}) bool {
	if err := json.Unmarshal(payload, dst); err != nil {
		log.Printf("hub: malformed command payload: %v", err)
		return false
	}
	return true
}
