package engine

import "math"

// Point is a planar coordinate, used only as a value type for the pure
// geometry functions below; Node is the stateful counterpart.
type Point struct {
	X, Y float64
}

const epsilon = 1e-9

// orientation returns 0 if p, q, r are collinear, 1 for clockwise, 2 for
// counter-clockwise — the classical cross-product sign test.
func orientation(p, q, r Point) int {
	val := (q.Y-p.Y)*(r.X-q.X) - (q.X-p.X)*(r.Y-q.Y)
	if math.Abs(val) < epsilon {
		return 0
	}
	if val > 0 {
		return 1
	}
	return 2
}

// onSegment reports whether q lies on segment p-r, given p, q, r collinear.
func onSegment(p, q, r Point) bool {
	return q.X <= math.Max(p.X, r.X)+epsilon && q.X >= math.Min(p.X, r.X)-epsilon &&
		q.Y <= math.Max(p.Y, r.Y)+epsilon && q.Y >= math.Min(p.Y, r.Y)-epsilon
}

func samePoint(a, b Point) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon
}

// SegmentsIntersect reports whether segment p1-p2 crosses segment q1-q2,
// using the classical orientation test plus a collinear on-segment check.
// By convention, two segments that merely share an endpoint are NOT
// considered intersecting — callers rely on this when checking a proposed
// bridge against existing edges, since sharing an endpoint with an existing
// edge is normal topology, not a crossing.
func SegmentsIntersect(p1, p2, q1, q2 Point) bool {
	if samePoint(p1, q1) || samePoint(p1, q2) || samePoint(p2, q1) || samePoint(p2, q2) {
		return false
	}

	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	if o1 == 0 && onSegment(p1, q1, p2) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, p2) {
		return true
	}
	if o3 == 0 && onSegment(q1, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(q1, p2, q2) {
		return true
	}

	return false
}

// PointSegmentDistance returns the shortest Euclidean distance from p to
// the segment a-b.
func PointSegmentDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	segLenSq := dx*dx + dy*dy
	if segLenSq < epsilon {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / segLenSq
	t = math.Max(0, math.Min(1, t))
	projX := a.X + t*dx
	projY := a.Y + t*dy
	return math.Hypot(p.X-projX, p.Y-projY)
}

func nodePoint(n *Node) Point { return Point{X: n.X, Y: n.Y} }

// BridgeAdmissible checks that a proposed edge from-&gt;to satisfies I4 (no
// duplicate) and I5 (no crossing of an existing edge that doesn't share an
// endpoint with it). It also rejects from == to with a self-action error, as
// store.InsertEdge does.
func (s *Store) BridgeAdmissible(from, to NodeID) error {
	fromNode, ok := s.Nodes[from]
	if !ok {
		return newErr(ErrNotFound, "source node does not exist")
	}
	toNode, ok := s.Nodes[to]
	if !ok {
		return newErr(ErrNotFound, "target node does not exist")
	}
	if from == to {
		return newErr(ErrSelfAction, "cannot bridge a node to itself")
	}
	if s.duplicateEdge(from, to) {
		return newErr(ErrGeometry, "duplicate edge")
	}

	p1, p2 := nodePoint(fromNode), nodePoint(toNode)
	for _, e := range s.Edges {
		if e.Source == from || e.Target == from || e.Source == to || e.Target == to {
			continue // shares an endpoint with the proposed bridge
		}
		src, okS := s.Nodes[e.Source]
		tgt, okT := s.Nodes[e.Target]
		if !okS || !okT {
			continue
		}
		if SegmentsIntersect(p1, p2, nodePoint(src), nodePoint(tgt)) {
			return newErr(ErrGeometry, "bridge crosses an existing edge")
		}
	}

	return nil
}
