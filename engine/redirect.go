package engine

// RedirectEnergy turns on exactly one outgoing edge per player-owned node
// that can reach target along a BFS shortest path, through the attacker's
// own edges, turning off all sibling outflows and any outflow from the
// target itself (energy must flow into the target, never out of it).
//
// Precondition: target exists, the player owns at least one node, and at
// least one edge whose target is `target` has a source owned by the
// player. On success, among player-owned nodes that can reach target, each
// routes through exactly one outgoing edge.
func (m *Match) RedirectEnergy(player PlayerID, target NodeID) error {
	if err := m.requireActivePlayer(player); err != nil {
		return err
	}
	if m.Phase != PhasePlaying {
		return newErr(ErrPhase, "redirect is only available while playing")
	}
	if _, ok := m.Store.Nodes[target]; !ok {
		return newErr(ErrNotFound, "target node does not exist")
	}

	ownsAny := false
	for _, n := range m.Store.Nodes {
		if n.Owner == player {
			ownsAny = true
			break
		}
	}
	if !ownsAny {
		return newErr(ErrAuthorization, "you don't own any nodes")
	}

	canReach := false
	for _, eid := range m.Store.SortedEdgeIDs() {
		e := m.Store.Edges[eid]
		if e.Target != target {
			continue
		}
		if src, ok := m.Store.Nodes[e.Source]; ok && src.Owner == player {
			canReach = true
			break
		}
	}
	if !canReach {
		return newErr(ErrGeometry, "no path to target node")
	}

	m.optimizeEnergyFlowToTarget(player, target)
	return nil
}

// optimizeEnergyFlowToTarget implements the BFS-shortest-path optimizer
// described in spec §4.5: build a reverse adjacency over edges whose source
// is owned by the player, BFS from target, and record each visited node's
// single best next-hop edge (earliest enqueue wins, ties by ascending edge
// id). Then classify every player-owned-source edge: off if its source is
// the target, on if it is the best next hop of its source, off if its
// source has a chosen next hop but this isn't it, otherwise unchanged.
func (m *Match) optimizeEnergyFlowToTarget(player PlayerID, target NodeID) {
	incoming := make(map[NodeID][]EdgeID) // node -> edges (owned by player) targeting it
	for _, eid := range m.Store.SortedEdgeIDs() {
		e := m.Store.Edges[eid]
		src, ok := m.Store.Nodes[e.Source]
		if !ok || src.Owner != player {
			continue
		}
		incoming[e.Target] = append(incoming[e.Target], eid)
	}

	bestNextHop := make(map[NodeID]EdgeID)
	visited := map[NodeID]bool{target: true}
	queue := []NodeID{target}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		// Every player-owned edge whose target is `current` reaches it at
		// this BFS depth; the earliest-enqueued source wins ties by
		// ascending edge id (edges are already iterated in ascending id
		// order, so the first assignment per source stands).
		for _, eid := range incoming[current] {
			e := m.Store.Edges[eid]
			if _, already := bestNextHop[e.Source]; already {
				continue
			}
			bestNextHop[e.Source] = eid
			if !visited[e.Source] {
				visited[e.Source] = true
				queue = append(queue, e.Source)
			}
		}
	}

	for _, eid := range m.Store.SortedEdgeIDs() {
		e := m.Store.Edges[eid]
		src, ok := m.Store.Nodes[e.Source]
		if !ok || src.Owner != player {
			continue
		}

		if e.Source == target {
			e.On = false
			continue
		}
		if chosen, ok := bestNextHop[e.Source]; ok {
			e.On = eid == chosen
			continue
		}
		// Source cannot reach target: leave it unchanged.
	}
}
