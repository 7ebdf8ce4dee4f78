package hnsw

import "sort"

// neighborSelector picks which search candidates become graph edges,
// adapted from the teacher's simplified diversity heuristic (always
// keep the closest candidate, then skip later candidates that are
// much closer to an already-selected neighbor than to the query).
type neighborSelector struct {
	maxConnections  int
	levelMultiplier float64
}

func newNeighborSelector(maxConnections int, levelMultiplier float64) *neighborSelector {
	return &neighborSelector{maxConnections: maxConnections, levelMultiplier: levelMultiplier}
}

func (ns *neighborSelector) maxM(level int) int {
	if level == 0 {
		return int(float64(ns.maxConnections) * ns.levelMultiplier)
	}
	return ns.maxConnections
}

func (ns *neighborSelector) selectNeighbors(query []float32, candidates []candidate, level int, h *Index) []candidate {
	maxM := ns.maxM(level)
	if len(candidates) <= maxM {
		return candidates
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })

	selected := make([]candidate, 0, maxM)
	selected = append(selected, candidates[0])

	for i := 1; i < len(candidates) && len(selected) < maxM; i++ {
		cand := candidates[i]
		keep := true
		checkLimit := len(selected)
		if checkLimit > 3 {
			checkLimit = 3
		}
		for j := 0; j < checkLimit; j++ {
			d := h.distance(h.nodes[cand.id].vector, h.nodes[selected[j].id].vector)
			if d < cand.distance*0.8 {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, cand)
		}
	}

	for i := 1; i < len(candidates) && len(selected) < maxM; i++ {
		cand := candidates[i]
		already := false
		for _, s := range selected {
			if s.id == cand.id {
				already = true
				break
			}
		}
		if !already {
			selected = append(selected, cand)
		}
	}

	return selected
}

func (ns *neighborSelector) pruneConnections(id uint32, level int, h *Index) {
	n := h.nodes[id]
	if level >= len(n.links) {
		return
	}
	maxM := ns.maxM(level)
	if len(n.links[level]) <= maxM {
		return
	}

	candidates := make([]candidate, 0, len(n.links[level]))
	for _, linkID := range n.links[level] {
		d := h.distance(n.vector, h.nodes[linkID].vector)
		candidates = append(candidates, candidate{id: linkID, distance: d})
	}

	selected := ns.selectNeighbors(n.vector, candidates, level, h)
	newLinks := make([]uint32, len(selected))
	for i, s := range selected {
		newLinks[i] = s.id
	}
	n.links[level] = newLinks
}
