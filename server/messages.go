package server

import (
	"encoding/json"

	"durb/engine"
)

// inboundEnvelope is the outer shape of every client->server frame: a type
// tag that selects the payload's concrete struct, a token, and the
// type-specific payload itself. The token is decoded but not consulted: the
// sending player is the one bound to the connection's /ws/{playerId} route.
type inboundEnvelope struct {
	Type    string          `json:"type"`
	Token   string          `json:"token"`
	Payload json.RawMessage `json:"payload"`
}

// Payload shapes for each inbound command type, decoded from
// inboundEnvelope.Payload once the envelope's Type selects one.
type pickStartingNodePayload struct {
	NodeID engine.NodeID `json:"nodeId"`
}

type toggleEdgePayload struct {
	EdgeID engine.EdgeID `json:"edgeId"`
}

type reverseEdgePayload struct {
	EdgeID engine.EdgeID `json:"edgeId"`
	Cost   float64       `json:"cost"`
}

type buildBridgePayload struct {
	FromNodeID engine.NodeID `json:"fromNodeId"`
	ToNodeID   engine.NodeID `json:"toNodeId"`
	Cost       float64       `json:"cost"`
}

type redirectEnergyPayload struct {
	TargetNodeID engine.NodeID `json:"targetNodeId"`
}

type destroyNodePayload struct {
	NodeID engine.NodeID `json:"nodeId"`
}

// outbound message types for SPEC_FULL.md §4.8's list; the error events
// (bridgeError, reverseEdgeError, destroyError and the other *Error types)
// share errorMessage. Each struct carries a plain "type" field that the
// sender sets to the message's type string when it builds the message.

type initMessage struct {
	Type       string          `json:"type"`
	PlayerID   engine.PlayerID `json:"playerId"`
	Nodes      []nodeView      `json:"nodes"`
	Edges      []edgeView      `json:"edges"`
	Settings   settingsView    `json:"settings"`
	Phase      engine.Phase    `json:"phase"`
	CapitalIDs []engine.NodeID `json:"capitalIds"`
}

type tickMessage struct {
	Type          string             `json:"type"`
	TickCount     int64              `json:"tickCount"`
	Phase         engine.Phase       `json:"phase"`
	Nodes         []nodeView         `json:"nodes"`
	Edges         []edgeTickView     `json:"edges"`
	Gold          map[string]float64 `json:"gold"`
	NodeCounts    map[string]int     `json:"nodeCounts"`
	CapitalCounts map[string]int     `json:"capitalCounts"`
	WinThreshold  int                `json:"winThreshold"`
}

type newEdgeMessage struct {
	Type string   `json:"type"`
	Edge edgeView `json:"edge"`
	Cost float64  `json:"cost,omitempty"`
}

type edgeReversedMessage struct {
	Type string   `json:"type"`
	Edge edgeView `json:"edge"`
	Cost float64  `json:"cost,omitempty"`
}

type edgeUpdatedMessage struct {
	Type string   `json:"type"`
	Edge edgeView `json:"edge"`
}

type nodeDestroyedMessage struct {
	Type         string          `json:"type"`
	NodeID       engine.NodeID   `json:"nodeId"`
	RemovedEdges []engine.EdgeID `json:"removedEdges"`
}

type nodeCapturedMessage struct {
	Type        string          `json:"type"`
	NodeID      engine.NodeID   `json:"nodeId"`
	NewOwner    engine.PlayerID `json:"newOwner"`
	PriorOwner  engine.PlayerID `json:"priorOwner"`
	GoldAwarded float64         `json:"goldAwarded"`
}

type gameOverMessage struct {
	Type     string          `json:"type"`
	WinnerID engine.PlayerID `json:"winnerId"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorMessage(kind string, err error) errorMessage {
	return errorMessage{Type: kind, Message: err.Error()}
}

// nodeView/edgeView are the wire projections of engine.Node/engine.Edge —
// kept separate from the engine types so the engine package never imports
// encoding/json or knows anything about the wire format.
type nodeView struct {
	ID    engine.NodeID   `json:"id"`
	X     float64         `json:"x"`
	Y     float64         `json:"y"`
	Juice float64         `json:"juice"`
	Owner engine.PlayerID `json:"owner"`
}

type edgeView struct {
	ID                engine.EdgeID   `json:"id"`
	Source            engine.NodeID   `json:"source"`
	Target            engine.NodeID   `json:"target"`
	On                bool            `json:"on"`
	Flowing           bool            `json:"flowing"`
	Building          bool            `json:"building"`
	BuildTicksRequired int            `json:"buildTicksRequired"`
	BuildTicksElapsed  int            `json:"buildTicksElapsed"`
}

// edgeTickView is the tick message's per-edge delta: just the fields that
// can change between ticks (on/flowing), not the full edgeView — source,
// target, and build state are already known from init/newEdge.
type edgeTickView struct {
	ID      engine.EdgeID `json:"id"`
	On      bool          `json:"on"`
	Flowing bool          `json:"flowing"`
}

type settingsView struct {
	TickIntervalMS  int     `json:"tickIntervalMs"`
	GameDurationSec float64 `json:"gameDurationSeconds"`
	JuiceMax        float64 `json:"juiceMax"`
	WinThreshold    int     `json:"winThreshold"`
	TotalNodes      int     `json:"totalNodes"`
}

func viewNode(n *engine.Node) nodeView {
	return nodeView{ID: n.ID, X: n.X, Y: n.Y, Juice: n.Juice, Owner: n.Owner}
}

func viewEdgeTick(e *engine.Edge) edgeTickView {
	return edgeTickView{ID: e.ID, On: e.On, Flowing: e.Flowing}
}

func viewEdge(e *engine.Edge) edgeView {
	return edgeView{
		ID:                 e.ID,
		Source:              e.Source,
		Target:              e.Target,
		On:                  e.On,
		Flowing:             e.Flowing,
		Building:            e.Building,
		BuildTicksRequired:  e.BuildTicksRequired,
		BuildTicksElapsed:   e.BuildTicksElapsed,
	}
}
