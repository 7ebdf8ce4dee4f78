package hnsw

// insertNode wires a freshly appended node into the graph, following
// the teacher's two-phase insertion: greedy descent from the top
// level down to node.level+1, then beam search + neighbor selection
// + bidirectional connection from node.level down to 0.
func (h *Index) insertNode(n *node, id uint32) {
	if len(h.nodes) == 2 {
		n.links[0] = append(n.links[0], h.entryPoint)
		entryNode := h.nodes[h.entryPoint]
		if len(entryNode.links) > 0 {
			entryNode.links[0] = append(entryNode.links[0], id)
		}
		return
	}

	entry := h.entryPoint
	for level := h.maxLevel; level > n.level; level-- {
		candidates := h.searchLevel(n.vector, entry, 1, level)
		if len(candidates) > 0 {
			entry = candidates[0].id
		}
	}

	for level := n.level; level >= 0; level-- {
		candidates := h.searchLevel(n.vector, entry, h.config.EfConstruction, level)
		selected := h.neighborSel.selectNeighbors(n.vector, candidates, level, h)
		h.connectBidirectional(id, selected, level)
		h.pruneNeighborConnections(selected, level)
		if len(selected) > 0 {
			entry = selected[0].id
		}
	}
}

func (h *Index) connectBidirectional(id uint32, neighbors []candidate, level int) {
	n := h.nodes[id]
	for _, nb := range neighbors {
		n.links[level] = append(n.links[level], nb.id)

		neighborNode := h.nodes[nb.id]
		if level < len(neighborNode.links) {
			neighborNode.links[level] = append(neighborNode.links[level], id)
		}
	}
}

func (h *Index) pruneNeighborConnections(neighbors []candidate, level int) {
	for _, nb := range neighbors {
		h.neighborSel.pruneConnections(nb.id, level, h)
	}
}
