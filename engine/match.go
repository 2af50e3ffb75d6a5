package engine

import (
	"sort"

	"durb/config"
)

// CaptureEvent describes a node ownership flip produced by a tick, queued
// for the transport to drain and broadcast as a nodeCaptured observation.
type CaptureEvent struct {
	NodeID      NodeID
	NewOwner    PlayerID
	PriorOwner  PlayerID // NoOwner if this was a neutral capture
	GoldAwarded float64
}

// EliminationEvent describes a player reaching zero owned nodes.
type EliminationEvent struct {
	PlayerID PlayerID
}

// Match is the singleton mutable state of one engine instance: the graph
// store, players, their economy, and the match's phase/timer. Exactly one
// goroutine is expected to call its methods — see package server for the
// driver that serializes commands and ticks against a Match.
type Match struct {
	Settings *config.Settings
	Store    *Store

	Players           map[PlayerID]*Player
	PlayerGold        map[PlayerID]*AtomicFloat64
	PlayersWhoPicked  map[PlayerID]bool
	PlayerAutoExpand  map[PlayerID]bool
	EliminatedPlayers map[PlayerID]bool
	CapitalNodes      map[NodeID]bool

	Phase     Phase
	TickCount int64

	// PeaceStartedAtTick/PlayingStartedAtTick anchor the peace and playing
	// timers to tick count rather than wall-clock time (-1 = not yet
	// started), so that two matches fed the same command/tick sequence
	// reach bytewise-identical states (P8) regardless of real elapsed time
	// between ticks. The transport layer is free to also track a
	// wall-clock timestamp for display; the engine's own victory/phase
	// decisions never consult it.
	PeaceStartedAtTick   int64
	PlayingStartedAtTick int64

	WinnerID  PlayerID
	GameEnded bool

	PendingNodeCaptures []CaptureEvent
	PendingEliminations []EliminationEvent
}

// NewMatch builds a match over a pre-generated graph (nodes/edges come from
// an external graph-generation policy, out of scope here) and a roster of
// players, starting in the picking phase.
func NewMatch(settings *config.Settings, store *Store, players []*Player) *Match {
	m := &Match{
		Settings:          settings,
		Store:             store,
		Players:           make(map[PlayerID]*Player),
		PlayerGold:        make(map[PlayerID]*AtomicFloat64),
		PlayersWhoPicked:  make(map[PlayerID]bool),
		PlayerAutoExpand:  make(map[PlayerID]bool),
		EliminatedPlayers: make(map[PlayerID]bool),
		CapitalNodes:      make(map[NodeID]bool),
		Phase:             PhasePicking,
		PeaceStartedAtTick:   -1,
		PlayingStartedAtTick: -1,
	}
	for _, p := range players {
		m.Players[p.ID] = p
		m.PlayerGold[p.ID] = NewAtomicFloat64(settings.StartingGold)
		m.PlayersWhoPicked[p.ID] = false
		m.PlayerAutoExpand[p.ID] = false
	}
	return m
}

// Gold returns a player's current gold balance.
func (m *Match) Gold(id PlayerID) float64 {
	af, ok := m.PlayerGold[id]
	if !ok {
		return 0
	}
	return af.AtomicRead()
}

func (m *Match) addGold(id PlayerID, delta float64) {
	af, ok := m.PlayerGold[id]
	if !ok {
		return
	}
	for {
		if _, ok := af.AtomicAdd(delta); ok {
			return
		}
	}
}

func (m *Match) deductGold(id PlayerID, amount float64) {
	m.addGold(id, -amount)
}

// sortedPlayerIDs returns player ids in ascending order, for deterministic
// iteration and to break victory-check ties by lowest player id.
func (m *Match) sortedPlayerIDs() []PlayerID {
	ids := make([]PlayerID, 0, len(m.Players))
	for id := range m.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// nodeCountsByOwner returns the number of nodes owned by each player.
func (m *Match) nodeCountsByOwner() map[PlayerID]int {
	counts := make(map[PlayerID]int)
	for _, id := range m.Store.SortedNodeIDs() {
		n := m.Store.Nodes[id]
		if n.Owner != NoOwner {
			counts[n.Owner]++
		}
	}
	return counts
}

// capitalCountsByOwner returns the number of capital nodes owned by each
// player.
func (m *Match) capitalCountsByOwner() map[PlayerID]int {
	counts := make(map[PlayerID]int)
	for id := range m.CapitalNodes {
		n, ok := m.Store.Nodes[id]
		if !ok || n.Owner == NoOwner {
			continue
		}
		counts[n.Owner]++
	}
	return counts
}

// winThreshold is the node count needed to win by the 2/3-of-total rule.
func (m *Match) winThreshold() int {
	total := len(m.Store.Nodes)
	if total%3 == 0 {
		return (total * 2) / 3
	}
	return (total*2 + 2) / 3
}

// WinThreshold exposes winThreshold for the transport to report in its
// init/tick observations.
func (m *Match) WinThreshold() int {
	return m.winThreshold()
}

// NodeCounts exposes nodeCountsByOwner for the transport to report in its
// init/tick observations.
func (m *Match) NodeCounts() map[PlayerID]int {
	return m.nodeCountsByOwner()
}

// CapitalCounts exposes capitalCountsByOwner for the transport to report in
// its init/tick observations.
func (m *Match) CapitalCounts() map[PlayerID]int {
	return m.capitalCountsByOwner()
}

// DrainCaptures returns and clears the pending capture queue, for the
// transport to broadcast as nodeCaptured events.
func (m *Match) DrainCaptures() []CaptureEvent {
	out := m.PendingNodeCaptures
	m.PendingNodeCaptures = nil
	return out
}

// DrainEliminations returns and clears the pending elimination queue.
func (m *Match) DrainEliminations() []EliminationEvent {
	out := m.PendingEliminations
	m.PendingEliminations = nil
	return out
}
