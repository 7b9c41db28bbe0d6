package vision

const iouEpsilon = 1e-6

// Box is an axis-aligned bounding box in pixel coordinates, x1 < x2 and
// y1 < y2. Boxes are plain values with no identity; track identity lives on
// integer track IDs, never on geometry.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the box area. Degenerate boxes yield zero or negative area,
// which downstream overlap computations treat as "no overlap".
func (b Box) Area() float64 { return (b.X2 - b.X1) * (b.Y2 - b.Y1) }

func intersectionArea(a, b Box) float64 {
	left := max(a.X1, b.X1)
	top := max(a.Y1, b.Y1)
	right := min(a.X2, b.X2)
	bottom := min(a.Y2, b.Y2)

	if right < left || bottom < top {
		return 0
	}
	return (right - left) * (bottom - top)
}

// OverlapRatio returns the intersection area divided by the area of the
// smaller box. The asymmetric denominator is deliberate: a small box fully
// inside a larger one scores 1.0, so two detections of the same physical card
// match even under scale variance. Returns 0 when the boxes do not intersect
// or either has zero area.
func OverlapRatio(a, b Box) float64 {
	inter := intersectionArea(a, b)
	if inter == 0 {
		return 0
	}

	minArea := min(a.Area(), b.Area())
	if minArea <= 0 {
		return 0
	}
	return inter / minArea
}

// IoU returns the standard intersection-over-union of two boxes. A small
// epsilon in the denominator guards against division by zero for degenerate
// boxes. Symmetric, used for frame-to-frame identity matching.
func IoU(a, b Box) float64 {
	inter := intersectionArea(a, b)
	return inter / (a.Area() + b.Area() - inter + iouEpsilon)
}

// GroupByOverlap partitions boxes into connected components, where box i and
// box j are adjacent iff OverlapRatio(i, j) >= threshold. Components are
// found with union-find; each returned group is a list of indices into boxes.
// Group order follows the smallest index in each group.
func GroupByOverlap(boxes []Box, threshold float64) [][]int {
	n := len(boxes)
	if n == 0 {
		return nil
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if OverlapRatio(boxes[i], boxes[j]) >= threshold {
				uf.union(i, j)
			}
		}
	}

	// Collect members per root, preserving index order within and across
	// groups so grouping is deterministic for any fixed input order.
	members := make(map[int][]int, n)
	var roots []int
	for i := 0; i < n; i++ {
		r := uf.find(i)
		if _, seen := members[r]; !seen {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}

	groups := make([][]int, 0, len(roots))
	for _, r := range roots {
		groups = append(groups, members[r])
	}
	return groups
}

// unionFind is a standard disjoint-set with path halving and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
