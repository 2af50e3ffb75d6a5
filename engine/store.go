package engine

import "sort"

// Store encapsulates the data model and the mutation primitives that
// preserve I1 (edges reference two distinct existing nodes, reciprocally
// tracked in both nodes' attached lists) and I4 (at most one directed edge
// per unordered node pair). It enforces structural consistency only; it
// knows nothing about gameplay rules, ownership, or gold.
type Store struct {
	Nodes map[NodeID]*Node
	Edges map[EdgeID]*Edge
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		Nodes: make(map[NodeID]*Node),
		Edges: make(map[EdgeID]*Edge),
	}
}

// InsertNode adds a node to the store. The caller owns id assignment, since
// node ids come from the (external) graph generator.
func (s *Store) InsertNode(n *Node) {
	s.Nodes[n.ID] = n
}

// RemoveNode cascades: every incident edge is removed first, then the node
// itself. Returns the ids of edges that were removed, so callers (e.g. the
// destroy_node command) can report them.
func (s *Store) RemoveNode(id NodeID) []EdgeID {
	n, ok := s.Nodes[id]
	if !ok {
		return nil
	}

	removed := make([]EdgeID, 0, len(n.AttachedEdgeIDs))
	// Copy since RemoveEdge mutates AttachedEdgeIDs of both endpoints.
	incident := append([]EdgeID(nil), n.AttachedEdgeIDs...)
	for _, eid := range incident {
		s.RemoveEdge(eid)
		removed = append(removed, eid)
	}

	delete(s.Nodes, id)
	return removed
}

// duplicateEdge reports whether an edge already connects this unordered
// pair of nodes, in either direction (I4).
func (s *Store) duplicateEdge(a, b NodeID) bool {
	for _, e := range s.Edges {
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			return true
		}
	}
	return false
}

// NextEdgeID returns the id that the next InsertEdge call will assign: one
// greater than the current maximum edge id, or 1 for an empty store, per
// the build_bridge contract.
func (s *Store) NextEdgeID() EdgeID {
	max := EdgeID(0)
	for id := range s.Edges {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// InsertEdge creates a new directed edge from source to target, rejecting
// duplicates under I4. Both endpoints' attached-edge lists are updated.
func (s *Store) InsertEdge(source, target NodeID) (*Edge, error) {
	if source == target {
		return nil, newErr(ErrSelfAction, "edge endpoints must be distinct")
	}
	if _, ok := s.Nodes[source]; !ok {
		return nil, newErr(ErrNotFound, "source node does not exist")
	}
	if _, ok := s.Nodes[target]; !ok {
		return nil, newErr(ErrNotFound, "target node does not exist")
	}
	if s.duplicateEdge(source, target) {
		return nil, newErr(ErrGeometry, "duplicate edge")
	}

	e := &Edge{
		ID:     s.NextEdgeID(),
		Source: source,
		Target: target,
	}
	s.Edges[e.ID] = e
	s.Nodes[source].AttachedEdgeIDs = append(s.Nodes[source].AttachedEdgeIDs, e.ID)
	s.Nodes[target].AttachedEdgeIDs = append(s.Nodes[target].AttachedEdgeIDs, e.ID)
	return e, nil
}

// RemoveEdge removes an edge and detaches it from both endpoint lists.
func (s *Store) RemoveEdge(id EdgeID) {
	e, ok := s.Edges[id]
	if !ok {
		return
	}
	if src, ok := s.Nodes[e.Source]; ok {
		src.AttachedEdgeIDs = removeID(src.AttachedEdgeIDs, id)
	}
	if tgt, ok := s.Nodes[e.Target]; ok {
		tgt.AttachedEdgeIDs = removeID(tgt.AttachedEdgeIDs, id)
	}
	delete(s.Edges, id)
}

func removeID(ids []EdgeID, target EdgeID) []EdgeID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// SetOwner sets a node's owner directly. Gameplay preconditions (gold,
// phase, prior ownership) are validated by the command layer, not here.
func (s *Store) SetOwner(id NodeID, owner PlayerID) {
	if n, ok := s.Nodes[id]; ok {
		n.Owner = owner
	}
}

// SortedNodeIDs returns node ids in ascending order, for deterministic
// iteration in the tick simulator and snapshot serialization.
func (s *Store) SortedNodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedEdgeIDs returns edge ids in ascending order.
func (s *Store) SortedEdgeIDs() []EdgeID {
	ids := make([]EdgeID, 0, len(s.Edges))
	for id := range s.Edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
