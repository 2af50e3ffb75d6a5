package engine

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSegmentsIntersect(t *testing.T) {
	Convey("Given two crossing segments", t, func() {
		p1, p2 := Point{0, 0}, Point{10, 10}
		q1, q2 := Point{0, 10}, Point{10, 0}

		Convey("They are reported as intersecting", func() {
			So(SegmentsIntersect(p1, p2, q1, q2), ShouldBeTrue)
		})
	})

	Convey("Given two segments sharing only an endpoint", t, func() {
		p1, p2 := Point{0, 0}, Point{10, 0}
		q1, q2 := Point{0, 0}, Point{0, 10}

		Convey("They are NOT reported as intersecting (B3: shared endpoint is fine)", func() {
			So(SegmentsIntersect(p1, p2, q1, q2), ShouldBeFalse)
		})
	})

	Convey("Given a T-junction crossing mid-segment", t, func() {
		p1, p2 := Point{0, 0}, Point{10, 0}
		q1, q2 := Point{5, -5}, Point{5, 5}

		Convey("It is reported as a crossing (B3: not a shared endpoint)", func() {
			So(SegmentsIntersect(p1, p2, q1, q2), ShouldBeTrue)
		})
	})

	Convey("Given two disjoint parallel segments", t, func() {
		p1, p2 := Point{0, 0}, Point{10, 0}
		q1, q2 := Point{0, 5}, Point{10, 5}

		Convey("They do not intersect", func() {
			So(SegmentsIntersect(p1, p2, q1, q2), ShouldBeFalse)
		})
	})
}

func TestPointSegmentDistance(t *testing.T) {
	Convey("Given a horizontal segment", t, func() {
		a, b := Point{0, 0}, Point{10, 0}

		Convey("A point directly above the midpoint", func() {
			So(PointSegmentDistance(Point{5, 3}, a, b), ShouldEqual, 3.0)
		})

		Convey("A point beyond the segment's end clamps to the endpoint", func() {
			So(PointSegmentDistance(Point{15, 0}, a, b), ShouldEqual, 5.0)
		})
	})
}

// S3: bridge build from (0,0) to (10,0) must fail when an existing edge
// from (5,-5) to (5,5) crosses it, with a Geometry error.
func TestBridgeAdmissibleRejectsCrossing(t *testing.T) {
	Convey("Given an existing edge crossing a proposed bridge", t, func() {
		s := NewStore()
		s.InsertNode(&Node{ID: 1, X: 0, Y: 0})
		s.InsertNode(&Node{ID: 2, X: 10, Y: 0})
		s.InsertNode(&Node{ID: 3, X: 5, Y: -5})
		s.InsertNode(&Node{ID: 4, X: 5, Y: 5})
		_, err := s.InsertEdge(3, 4)
		So(err, ShouldBeNil)

		Convey("BridgeAdmissible(1, 2) fails with a Geometry error", func() {
			err := s.BridgeAdmissible(1, 2)
			So(err, ShouldNotBeNil)
			cerr, ok := err.(*CommandError)
			So(ok, ShouldBeTrue)
			So(cerr.Kind, ShouldEqual, ErrGeometry)
		})
	})
}

func TestBridgeAdmissibleAllowsSharedEndpoint(t *testing.T) {
	Convey("Given an existing edge sharing an endpoint with a proposed bridge", t, func() {
		s := NewStore()
		s.InsertNode(&Node{ID: 1, X: 0, Y: 0})
		s.InsertNode(&Node{ID: 2, X: 10, Y: 0})
		s.InsertNode(&Node{ID: 3, X: 10, Y: 10})
		_, err := s.InsertEdge(2, 3)
		So(err, ShouldBeNil)

		Convey("BridgeAdmissible(1, 2) succeeds", func() {
			So(s.BridgeAdmissible(1, 2), ShouldBeNil)
		})
	})
}

// B4: sharp-angle resolution with a maximum displacement of zero applies no
// movement and reports Limited: true.
func TestResolveSharpAnglesZeroDisplacementIsLimited(t *testing.T) {
	Convey("Given two edges meeting at a sharp angle", t, func() {
		s := NewStore()
		s.InsertNode(&Node{ID: 1, X: 0, Y: 0})
		s.InsertNode(&Node{ID: 2, X: 10, Y: 0})
		s.InsertNode(&Node{ID: 3, X: 10, Y: 1}) // nearly collinear with 1->2
		existing, err := s.InsertEdge(1, 3)
		So(err, ShouldBeNil)
		newEdge, err := s.InsertEdge(1, 2)
		So(err, ShouldBeNil)
		_ = existing

		Convey("With maxDisplacement = 0, no movement is applied and Limited is true", func() {
			origX, origY := s.Nodes[3].X, s.Nodes[3].Y
			result := s.ResolveSharpAngles(newEdge, 22.5, 0.0, 5.0)
			So(result.Limited, ShouldBeTrue)
			So(s.Nodes[3].X, ShouldEqual, origX)
			So(s.Nodes[3].Y, ShouldEqual, origY)
		})
	})
}

func TestResolveSharpAnglesRelaxesWithinBudget(t *testing.T) {
	Convey("Given two edges meeting at a sharp angle with ample displacement budget", t, func() {
		s := NewStore()
		s.InsertNode(&Node{ID: 1, X: 0, Y: 0})
		s.InsertNode(&Node{ID: 2, X: 10, Y: 0})
		s.InsertNode(&Node{ID: 3, X: 10, Y: 1})
		_, err := s.InsertEdge(1, 3)
		So(err, ShouldBeNil)
		newEdge, err := s.InsertEdge(1, 2)
		So(err, ShouldBeNil)

		Convey("The far node of the sharp neighbor edge moves, never introducing a new crossing", func() {
			result := s.ResolveSharpAngles(newEdge, 22.5, 50.0, 1.0)
			So(len(result.Movements), ShouldBeGreaterThan, 0)

			// No two edges should cross after relaxation.
			ids := s.SortedEdgeIDs()
			for i := 0; i < len(ids); i++ {
				for j := i + 1; j < len(ids); j++ {
					a, b := s.Edges[ids[i]], s.Edges[ids[j]]
					if edgeSharesEndpoint(a, b) {
						continue
					}
					pa1, pa2 := nodePoint(s.Nodes[a.Source]), nodePoint(s.Nodes[a.Target])
					pb1, pb2 := nodePoint(s.Nodes[b.Source]), nodePoint(s.Nodes[b.Target])
					So(SegmentsIntersect(pa1, pa2, pb1, pb2), ShouldBeFalse)
				}
			}
		})
	})
}
