package engine

import "sort"

// Tick advances the match by one fixed-duration step, deterministically,
// following the ordered phases in spec §4.3: refresh flowing, production,
// outflow computation, transfer application, commit+clamp, ownership flips,
// passive income, victory checks, tick increment. Iteration is always by
// ascending id so two matches with bytewise-equal state produce bytewise-
// equal post-states (P8).
func (m *Match) Tick() {
	if m.Phase == PhaseEnded {
		return
	}

	nodeIDs := m.Store.SortedNodeIDs()
	edgeIDs := m.Store.SortedEdgeIDs()

	m.refreshFlowing(edgeIDs)

	delta := make(map[NodeID]float64, len(nodeIDs))
	intake := make(map[NodeID]float64, len(nodeIDs))
	for _, id := range nodeIDs {
		delta[id] = 0
		intake[id] = 0
	}

	m.applyProduction(nodeIDs, delta)

	perEdgeAmount := m.computeOutflow(nodeIDs, edgeIDs)

	pendingOwnership := m.applyTransfers(edgeIDs, perEdgeAmount, delta, intake)

	for _, id := range nodeIDs {
		m.Store.Nodes[id].CurIntake = intake[id]
	}

	m.commitAndClamp(nodeIDs, delta)

	m.applyOwnershipFlips(pendingOwnership)

	if m.Settings.PassiveIncomeEnabled {
		m.applyPassiveIncome()
	}

	m.checkVictory()

	m.TickCount++
}

// refreshFlowing derives each edge's effective flow for this tick: a
// building edge never flows (and advances its construction progress
// instead); otherwise flowing requires on=true, an owned source, and either
// an enemy-owned target (attack — always flows) or a same-owner/unowned
// target with spare capacity (juice < JuiceMax).
func (m *Match) refreshFlowing(edgeIDs []EdgeID) {
	for _, id := range edgeIDs {
		e := m.Store.Edges[id]

		if e.Building {
			e.Flowing = false
			e.BuildTicksElapsed++
			if e.BuildTicksElapsed >= e.BuildTicksRequired {
				e.Building = false
			}
			continue
		}

		if !e.On {
			e.Flowing = false
			continue
		}

		src, ok := m.Store.Nodes[e.Source]
		if !ok || src.Owner == NoOwner {
			e.Flowing = false
			continue
		}
		tgt, ok := m.Store.Nodes[e.Target]
		if !ok {
			e.Flowing = false
			continue
		}

		if tgt.Owner != NoOwner && tgt.Owner != src.Owner {
			e.Flowing = true // attack: always flows when on
		} else {
			e.Flowing = tgt.Juice < m.Settings.JuiceMax
		}
	}
}

func (m *Match) applyProduction(nodeIDs []NodeID, delta map[NodeID]float64) {
	for _, id := range nodeIDs {
		n := m.Store.Nodes[id]
		if n.Owner == NoOwner {
			continue
		}
		rate := m.Settings.ProductionRatePerNode
		if n.Capital {
			rate *= 2.0
		}
		delta[id] += rate
	}
}

// computeOutflow splits each flowing source's total outflow equally across
// its flowing outgoing edges. Total outflow is the source's juice times
// (base fraction + intake bonus from last tick's cur_intake).
func (m *Match) computeOutflow(nodeIDs []NodeID, edgeIDs []EdgeID) map[EdgeID]float64 {
	outgoing := make(map[NodeID][]EdgeID)
	for _, id := range edgeIDs {
		e := m.Store.Edges[id]
		if !e.Flowing {
			continue
		}
		outgoing[e.Source] = append(outgoing[e.Source], id)
	}

	perEdgeAmount := make(map[EdgeID]float64)
	for _, srcID := range nodeIDs {
		ids, ok := outgoing[srcID]
		if !ok || len(ids) == 0 {
			continue
		}
		src := m.Store.Nodes[srcID]
		pct := m.Settings.BaseTransferFraction + src.CurIntake/m.Settings.IntakeBonusDivisor
		total := src.Juice * pct
		if total <= 0 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		each := total / float64(len(ids))
		for _, eid := range ids {
			perEdgeAmount[eid] = each
		}
	}
	return perEdgeAmount
}

// applyTransfers debits each flowing edge's source and, depending on the
// target's ownership, either credits a same-owner target (and tracks
// friendly intake) or drains an unowned/enemy target, queuing a tentative
// ownership transfer when the projected juice would hit JuiceMin.
func (m *Match) applyTransfers(
	edgeIDs []EdgeID,
	perEdgeAmount map[EdgeID]float64,
	delta map[NodeID]float64,
	intake map[NodeID]float64,
) map[NodeID]PlayerID {
	pending := make(map[NodeID]PlayerID)

	for _, eid := range edgeIDs {
		amount, ok := perEdgeAmount[eid]
		if !ok {
			continue
		}
		e := m.Store.Edges[eid]
		from, ok := m.Store.Nodes[e.Source]
		if !ok {
			continue
		}
		to, ok := m.Store.Nodes[e.Target]
		if !ok {
			continue
		}

		delta[from.ID] -= amount

		if to.Owner == from.Owner && from.Owner != NoOwner {
			delta[to.ID] += amount
			intake[to.ID] += amount
			continue
		}

		delta[to.ID] -= amount
		projected := to.Juice + delta[to.ID]
		if projected < m.Settings.JuiceMin {
			projected = m.Settings.JuiceMin
		}
		if projected <= m.Settings.JuiceMin {
			pending[to.ID] = from.Owner
		}
	}

	return pending
}

func (m *Match) commitAndClamp(nodeIDs []NodeID, delta map[NodeID]float64) {
	for _, id := range nodeIDs {
		n := m.Store.Nodes[id]
		n.Juice = clamp(n.Juice+delta[id], m.Settings.JuiceMin, m.Settings.JuiceMax)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// applyOwnershipFlips commits the tentative transfers recorded during
// applyTransfers for any target that actually ended the tick at JuiceMin,
// awarding capture gold for neutral captures and enqueueing capture events.
func (m *Match) applyOwnershipFlips(pending map[NodeID]PlayerID) {
	ids := make([]NodeID, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		newOwner := pending[id]
		n, ok := m.Store.Nodes[id]
		if !ok || n.Juice > m.Settings.JuiceMin {
			continue
		}

		priorOwner := n.Owner
		gold := 0.0
		if priorOwner == NoOwner {
			gold = m.Settings.NeutralCaptureGold
			m.addGold(newOwner, gold)
		}
		n.Owner = newOwner

		m.PendingNodeCaptures = append(m.PendingNodeCaptures, CaptureEvent{
			NodeID:      id,
			NewOwner:    newOwner,
			PriorOwner:  priorOwner,
			GoldAwarded: gold,
		})
	}
}

func (m *Match) applyPassiveIncome() {
	for _, id := range m.sortedPlayerIDs() {
		if m.EliminatedPlayers[id] {
			continue
		}
		m.addGold(id, m.Settings.PassiveGoldPerTick)
	}
}
