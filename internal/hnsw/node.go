package hnsw

// node is one graph vertex: its vector, the highest level it
// participates in, and its adjacency list per level.
type node struct {
	vector []float32
	level  int
	links  [][]uint32
}
