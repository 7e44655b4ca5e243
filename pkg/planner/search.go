package planner

import (
	"container/heap"
	"math"

	"github.com/oplik0/scht-lab/pkg/geo"
	"github.com/oplik0/scht-lab/pkg/topo"
)

// heuristic returns the optimistic straight-line delay from a node to the
// goal: great-circle kilometers over the 200 km/ms propagation constant.
// Nodes without coordinates contribute 0, which stays admissible.
func heuristic(n, goal *topo.Location) float64 {
	if !n.HasCoords() || !goal.HasCoords() {
		return 0
	}
	return geo.Haversine(*n.Lat, *n.Lon, *goal.Lat, *goal.Lon) / 200
}

// pqItem is one open-set entry.
type pqItem struct {
	node  *topo.Location
	fcost float64
	index int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].fcost < pq[j].fcost }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].index = i; pq[j].index = j }
func (pq *priorityQueue) Push(x interface{}) { it := x.(*pqItem); it.index = len(*pq); *pq = append(*pq, it) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return it
}

// AStar finds the cheapest path from src to dst under the given link cost,
// guided by the straight-line delay heuristic. Links with infinite cost are
// untraversable. Returns the ordered locations from src to dst inclusive;
// an unreachable pair yields an empty path, and src == dst yields the
// single-node path.
func AStar(t *topo.Topology, src, dst *topo.Location, cost func(*topo.Link) float64) []*topo.Location {
	if src == dst {
		return []*topo.Location{src}
	}

	gScore := map[*topo.Location]float64{src: 0}
	cameFrom := map[*topo.Location]*topo.Location{}
	closed := map[*topo.Location]bool{}

	open := priorityQueue{{node: src, fcost: heuristic(src, dst)}}
	heap.Init(&open)

	for open.Len() > 0 {
		current := heap.Pop(&open).(*pqItem).node
		if current == dst {
			return reconstruct(cameFrom, dst)
		}
		if closed[current] {
			continue
		}
		closed[current] = true

		for _, link := range t.Neighbors(current) {
			neighbor := link.Other(current)
			if closed[neighbor] {
				continue
			}
			c := cost(link)
			if math.IsInf(c, 1) {
				continue
			}
			tentative := gScore[current] + c
			if best, seen := gScore[neighbor]; seen && tentative >= best {
				continue
			}
			gScore[neighbor] = tentative
			cameFrom[neighbor] = current
			heap.Push(&open, &pqItem{node: neighbor, fcost: tentative + heuristic(neighbor, dst)})
		}
	}

	return nil
}

func reconstruct(cameFrom map[*topo.Location]*topo.Location, dst *topo.Location) []*topo.Location {
	var path []*topo.Location
	for n := dst; n != nil; n = cameFrom[n] {
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Dijkstra computes cheapest paths from src to every reachable location.
// It is A* with a zero heuristic; kept separate so the all-pairs analysis
// reads as what it is.
func Dijkstra(t *topo.Topology, src *topo.Location, cost func(*topo.Link) float64) map[*topo.Location][]*topo.Location {
	gScore := map[*topo.Location]float64{src: 0}
	cameFrom := map[*topo.Location]*topo.Location{}
	closed := map[*topo.Location]bool{}

	open := priorityQueue{{node: src}}
	heap.Init(&open)

	for open.Len() > 0 {
		current := heap.Pop(&open).(*pqItem).node
		if closed[current] {
			continue
		}
		closed[current] = true

		for _, link := range t.Neighbors(current) {
			neighbor := link.Other(current)
			if closed[neighbor] {
				continue
			}
			c := cost(link)
			if math.IsInf(c, 1) {
				continue
			}
			tentative := gScore[current] + c
			if best, seen := gScore[neighbor]; seen && tentative >= best {
				continue
			}
			gScore[neighbor] = tentative
			cameFrom[neighbor] = current
			heap.Push(&open, &pqItem{node: neighbor, fcost: tentative})
		}
	}

	paths := make(map[*topo.Location][]*topo.Location, len(closed))
	for n := range closed {
		paths[n] = reconstruct(cameFrom, n)
	}
	return paths
}

// AllPairsShortestPaths runs Dijkstra from every location, for offline
// analysis with a fixed cost function and no stream-specific requirements.
func AllPairsShortestPaths(t *topo.Topology, cost func(*topo.Link) float64) map[*topo.Location]map[*topo.Location][]*topo.Location {
	out := make(map[*topo.Location]map[*topo.Location][]*topo.Location, len(t.Locations))
	for _, src := range t.Locations {
		out[src] = Dijkstra(t, src, cost)
	}
	return out
}
