package hnsw

// searchLevel is the teacher's greedy-then-expand beam search,
// adapted to work directly over node ids instead of *Node pointers
// and without quantization branching.
func (h *Index) searchLevel(query []float32, entry uint32, ef int, level int) []candidate {
	visited := make([]bool, len(h.nodes))
	best := newFarthestFirst(ef * 2)
	frontier := newNearestFirst(ef)

	dist := h.distance(query, h.nodes[entry].vector)
	c := &candidate{id: entry, distance: dist}
	best.push(c)
	frontier.push(c)
	visited[entry] = true

	for frontier.Len() > 0 {
		current := frontier.pop()
		if best.Len() >= ef && current.distance > best.top().distance {
			break
		}

		currentNode := h.nodes[current.id]
		if level >= len(currentNode.links) {
			continue
		}
		for _, neighborID := range currentNode.links[level] {
			if visited[neighborID] {
				continue
			}
			visited[neighborID] = true

			d := h.distance(query, h.nodes[neighborID].vector)
			nc := &candidate{id: neighborID, distance: d}

			if best.Len() < ef || d < best.top().distance {
				best.push(nc)
				frontier.push(nc)
				if best.Len() > ef {
					best.pop()
				}
			}
		}
	}

	result := make([]candidate, best.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = *best.pop()
	}
	return result
}
