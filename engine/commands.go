package engine

import "math"

// DestroyNodeGoldCost is a flat fee; reverse_edge and build_bridge instead
// scale with distance (Settings.BridgeCostPerUnitDistance). ReverseEdge
// computes its cost with engineCost below; BuildBridge applies the same
// formula inline.
const DestroyNodeGoldCost = 3.0

// engineCost is the authoritative cost of reversing or bridging between two
// points: BRIDGE_COST_PER_UNIT_DISTANCE times the Euclidean distance.
func (m *Match) engineCost(ax, ay, bx, by float64) float64 {
	return math.Hypot(bx-ax, by-ay) * m.Settings.BridgeCostPerUnitDistance
}

// checkDeclaredCost enforces the caller-supplied cost against the engine's
// own computation: a declared cost below the true cost is rejected outright
// (the client is lying or stale), a declared cost at or above it is
// accepted, and the true engine cost — never the declared one — is what
// actually gets charged and checked against the player's gold balance.
func (m *Match) checkDeclaredCost(player PlayerID, declaredCost, trueCost float64) error {
	if declaredCost < trueCost {
		return newErr(ErrEconomy, "declared cost disagrees with engine computation")
	}
	if m.Gold(player) < trueCost {
		return newErr(ErrEconomy, "not enough gold")
	}
	return nil
}

// requireActivePlayer rejects any command from a player id the match does
// not recognize, or once the match has ended.
func (m *Match) requireActivePlayer(player PlayerID) error {
	if m.GameEnded {
		return newErr(ErrPhase, "game has ended")
	}
	if _, ok := m.Players[player]; !ok {
		return newErr(ErrAuthorization, "unknown player")
	}
	return nil
}

// PickStartingNode claims an unowned node as the caller's first territory.
// Only valid in the picking phase, once per player, on a currently-neutral
// node. Advances the match to the peace phase (or straight to playing, if
// no peace duration is configured) once every player has picked.
func (m *Match) PickStartingNode(player PlayerID, node NodeID) error {
	if err := m.requireActivePlayer(player); err != nil {
		return err
	}
	if m.Phase != PhasePicking {
		return newErr(ErrPhase, "starting nodes can only be picked during the picking phase")
	}
	if m.PlayersWhoPicked[player] {
		return newErr(ErrPhase, "you have already picked a starting node")
	}
	n, ok := m.Store.Nodes[node]
	if !ok {
		return newErr(ErrNotFound, "node does not exist")
	}
	if n.Owner != NoOwner {
		return newErr(ErrAuthorization, "node is already owned")
	}

	n.Owner = player
	m.PlayersWhoPicked[player] = true
	m.advanceFromPicking()
	return nil
}

// ToggleEdge flips an edge's on/off flag. Turning on requires owning the
// edge's source; during peace, turning on an edge that would attack an
// enemy-owned target is rejected outright (ErrPhaseAttack) rather than
// silently left off — callers should not believe the toggle took effect
// when it did not.
func (m *Match) ToggleEdge(player PlayerID, edge EdgeID) error {
	if err := m.requireActivePlayer(player); err != nil {
		return err
	}
	if m.Phase != PhasePeace && m.Phase != PhasePlaying {
		return newErr(ErrPhase, "edges can only be toggled during peace or playing")
	}
	e, ok := m.Store.Edges[edge]
	if !ok {
		return newErr(ErrNotFound, "edge does not exist")
	}

	if e.On || e.Flowing {
		e.On = false
		e.Flowing = false
		return nil
	}

	src, ok := m.Store.Nodes[e.Source]
	if !ok {
		return newErr(ErrNotFound, "source node does not exist")
	}
	if src.Owner != player {
		return newErr(ErrAuthorization, "you must own the source node")
	}

	if m.Phase == PhasePeace {
		tgt, ok := m.Store.Nodes[e.Target]
		if !ok {
			return newErr(ErrNotFound, "target node does not exist")
		}
		if tgt.Owner != NoOwner && tgt.Owner != player {
			return newErr(ErrPhaseAttack, "cannot attack during peace period")
		}
	}

	e.On = true
	e.Flowing = true
	return nil
}

// ReverseEdge swaps an edge's source and target, at a cost proportional to
// the planar distance between its endpoints (the same formula build_bridge
// uses). The caller must own at least one endpoint, and the edge's current
// source may never belong to another player (an opponent's outgoing pipe is
// not yours to redirect even if you own the far end). During peace,
// reversing an edge whose current target is enemy-owned (which would make
// that enemy node the new source) is rejected rather than applied-but-off,
// matching toggle_edge's ErrPhaseAttack behavior. declaredCost is the caller's own estimate of the cost, checked
// against the engine's computation via checkDeclaredCost.
func (m *Match) ReverseEdge(player PlayerID, edge EdgeID, declaredCost float64) error {
	if err := m.requireActivePlayer(player); err != nil {
		return err
	}
	if m.Phase != PhasePeace && m.Phase != PhasePlaying {
		return newErr(ErrPhase, "edges can only be reversed during peace or playing")
	}
	e, ok := m.Store.Edges[edge]
	if !ok {
		return newErr(ErrNotFound, "edge does not exist")
	}
	src, ok := m.Store.Nodes[e.Source]
	if !ok {
		return newErr(ErrNotFound, "source node does not exist")
	}
	tgt, ok := m.Store.Nodes[e.Target]
	if !ok {
		return newErr(ErrNotFound, "target node does not exist")
	}

	if src.Owner != player && tgt.Owner != player {
		return newErr(ErrAuthorization, "you must own at least one endpoint")
	}
	if src.Owner != NoOwner && src.Owner != player {
		return newErr(ErrAuthorization, "pipe controlled by opponent")
	}
	if m.Phase == PhasePeace && tgt.Owner != NoOwner && tgt.Owner != player {
		return newErr(ErrPhaseAttack, "cannot reverse into an attack during peace period")
	}

	cost := m.engineCost(src.X, src.Y, tgt.X, tgt.Y)
	if err := m.checkDeclaredCost(player, declaredCost, cost); err != nil {
		return err
	}

	e.Source, e.Target = e.Target, e.Source

	newSrc := m.Store.Nodes[e.Source]
	newTgt := m.Store.Nodes[e.Target]
	if newSrc.Owner == player && !(m.Phase == PhasePeace && newTgt.Owner != NoOwner && newTgt.Owner != player) {
		e.On = true
		e.Flowing = true
	} else {
		e.On = false
		e.Flowing = false
	}

	m.deductGold(player, cost)
	return nil
}

// BuildBridge creates a new edge from a node the caller owns to any other
// node, at a cost proportional to the planar distance, subject to the
// geometry kernel's crossing/duplicate rejection (I4, I5) and, during
// peace, the same anti-attack restriction as toggle_edge/reverse_edge. A
// successful bridge is passed through ResolveSharpAngles to relax any join
// sharper than the configured minimum. declaredCost is the caller's own
// estimate of the cost, checked against the engine's computation via
// checkDeclaredCost.
func (m *Match) BuildBridge(player PlayerID, from, to NodeID, declaredCost float64) (*Edge, error) {
	if err := m.requireActivePlayer(player); err != nil {
		return nil, err
	}
	if m.Phase != PhasePeace && m.Phase != PhasePlaying {
		return nil, newErr(ErrPhase, "bridges can only be built during peace or playing")
	}
	fromNode, ok := m.Store.Nodes[from]
	if !ok {
		return nil, newErr(ErrNotFound, "source node does not exist")
	}
	toNode, ok := m.Store.Nodes[to]
	if !ok {
		return nil, newErr(ErrNotFound, "target node does not exist")
	}
	if from == to {
		return nil, newErr(ErrSelfAction, "cannot connect a node to itself")
	}
	if fromNode.Owner != player {
		return nil, newErr(ErrAuthorization, "you must own the source node")
	}
	if m.Phase == PhasePeace && toNode.Owner != NoOwner && toNode.Owner != player {
		return nil, newErr(ErrPhaseAttack, "cannot attack during peace period")
	}

	dist := math.Hypot(toNode.X-fromNode.X, toNode.Y-fromNode.Y)
	cost := dist * m.Settings.BridgeCostPerUnitDistance
	if err := m.checkDeclaredCost(player, declaredCost, cost); err != nil {
		return nil, err
	}

	if err := m.Store.BridgeAdmissible(from, to); err != nil {
		return nil, err
	}

	e, err := m.Store.InsertEdge(from, to)
	if err != nil {
		return nil, err
	}

	shouldFlow := true
	if m.Phase == PhasePeace && toNode.Owner != NoOwner && toNode.Owner != player {
		shouldFlow = false
	}
	e.On = shouldFlow
	e.Flowing = shouldFlow

	if m.Settings.BridgeBuildTicksPerUnit > 0 {
		e.Building = true
		e.Flowing = false
		e.BuildTicksRequired = int(math.Ceil(dist * m.Settings.BridgeBuildTicksPerUnit))
		e.BuildTicksElapsed = 0
	}

	m.Store.ResolveSharpAngles(
		e,
		m.Settings.MinJoinAngleDegrees,
		m.Settings.MaxSharpAngleDisplacement,
		m.Settings.CollisionClearance,
	)

	m.deductGold(player, cost)
	return e, nil
}

// DestroyNode removes a node the caller owns, and every edge incident to
// it, at a flat gold cost. Only available during playing; destroying
// territory is not exposed during setup or peace.
func (m *Match) DestroyNode(player PlayerID, node NodeID) ([]EdgeID, error) {
	if err := m.requireActivePlayer(player); err != nil {
		return nil, err
	}
	if m.Phase != PhasePlaying {
		return nil, newErr(ErrPhase, "nodes can only be destroyed while playing")
	}
	n, ok := m.Store.Nodes[node]
	if !ok {
		return nil, newErr(ErrNotFound, "node does not exist")
	}
	if n.Owner != player {
		return nil, newErr(ErrAuthorization, "you must own this node")
	}
	if m.Gold(player) < DestroyNodeGoldCost {
		return nil, newErr(ErrEconomy, "not enough gold")
	}

	delete(m.CapitalNodes, node)
	removed := m.Store.RemoveNode(node)
	m.deductGold(player, DestroyNodeGoldCost)
	return removed, nil
}

// ToggleAutoExpand flips a player's auto-expand preference, a transport-
// level hint (the engine core does not itself act on it; a future
// auto-expand policy would read PlayerAutoExpand between ticks).
func (m *Match) ToggleAutoExpand(player PlayerID) error {
	if err := m.requireActivePlayer(player); err != nil {
		return err
	}
	m.PlayerAutoExpand[player] = !m.PlayerAutoExpand[player]
	if p, ok := m.Players[player]; ok {
		p.AutoExpand = m.PlayerAutoExpand[player]
	}
	return nil
}

// QuitGame eliminates the quitting player and lets the match continue; if
// exactly one active player remains afterward, they are awarded victory
// immediately rather than waiting for the next tick's victory check.
func (m *Match) QuitGame(player PlayerID) error {
	if err := m.requireActivePlayer(player); err != nil {
		return err
	}

	m.EliminatedPlayers[player] = true
	m.PendingEliminations = append(m.PendingEliminations, EliminationEvent{PlayerID: player})

	var remaining []PlayerID
	for _, id := range m.sortedPlayerIDs() {
		if !m.EliminatedPlayers[id] {
			remaining = append(remaining, id)
		}
	}

	if len(remaining) == 1 {
		m.endMatch(remaining[0])
	} else if len(remaining) == 0 {
		m.endMatch(NoOwner)
	}
	return nil
}
