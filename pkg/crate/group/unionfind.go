package group

// UnionFind is a disjoint-set forest over the indices 0..n-1.
type UnionFind struct {
	parent []int
	rank   []uint8
}

// NewUnionFind returns a forest of n singleton sets.
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{
		parent: make([]int, n),
		rank:   make([]uint8, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// Find returns the representative of i's set, compressing the path on the way.
func (uf *UnionFind) Find(i int) int {
	root := i
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[i] != root {
		next := uf.parent[i]
		uf.parent[i] = root
		i = next
	}
	return root
}

// Union merges the sets containing a and b.
func (uf *UnionFind) Union(a, b int) {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// Len returns the number of elements in the forest.
func (uf *UnionFind) Len() int {
	return len(uf.parent)
}

// connect unions every index in indices with the first one.
func (uf *UnionFind) connect(indices []int) {
	for _, idx := range indices[1:] {
		uf.Union(indices[0], idx)
	}
}
