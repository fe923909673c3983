package dedup

import (
	"sort"

	"cold_solutions_backend/internal/leads/domain"
)

// Group is a connected cluster of probable duplicates awaiting an operator decision.
type Group struct {
	Leads   []domain.Lead `json:"leads"`
	Score   int           `json:"score"`
	Reasons []string      `json:"reasons"`
}

// disjointSet is a union-find over lead indexes.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

func (d *disjointSet) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	switch {
	case d.rank[ra] < d.rank[rb]:
		d.parent[ra] = rb
	case d.rank[ra] > d.rank[rb]:
		d.parent[rb] = ra
	default:
		d.parent[rb] = ra
		d.rank[ra]++
	}
}

type edge struct {
	a, b    int
	score   int
	reasons []string
}

// Groups partitions the non-duplicate leads into connected components of the
// pairwise duplicate graph. Membership does not depend on input order.
// Group score is the sum of its edge scores; groups are returned strongest first.
func Groups(leads []domain.Lead) []Group {
	candidates := make([]domain.Lead, 0, len(leads))
	for _, l := range leads {
		if !l.IsDuplicate {
			candidates = append(candidates, l)
		}
	}
	// Stable ids make the result independent of the caller's ordering.
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	ds := newDisjointSet(len(candidates))
	edges := make([]edge, 0)
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			score, reasons := Score(candidates[i], candidates[j])
			if score >= Threshold {
				ds.union(i, j)
				edges = append(edges, edge{a: i, b: j, score: score, reasons: reasons})
			}
		}
	}

	byRoot := make(map[int]*Group)
	seen := make(map[int]map[string]bool)
	order := make([]int, 0)
	for _, e := range edges {
		root := ds.find(e.a)
		g, ok := byRoot[root]
		if !ok {
			g = &Group{Reasons: []string{}}
			byRoot[root] = g
			seen[root] = make(map[string]bool)
			order = append(order, root)
		}
		g.Score += e.score
		for _, r := range e.reasons {
			if !seen[root][r] {
				seen[root][r] = true
				g.Reasons = append(g.Reasons, r)
			}
		}
	}

	for i, l := range candidates {
		if g, ok := byRoot[ds.find(i)]; ok {
			g.Leads = append(g.Leads, l)
		}
	}

	out := make([]Group, 0, len(order))
	for _, root := range order {
		out = append(out, *byRoot[root])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Leads[0].ID < out[j].Leads[0].ID
		}
		return out[i].Score > out[j].Score
	})
	return out
}
