package regalloc

import (
	"fmt"
	"sort"

	"github.com/typec-lang/tcc/pkg/ir"
)

// KRegisters is how many physical registers the downstream VM exposes for
// general allocation.
const KRegisters = 16

// Allocation is the coloring result for one function: every virtual
// register either carries a physical register name or a spill slot index.
// The IR itself is left untouched; the encoder reads this annotation
// alongside it (spec §2 "Register allocation annotates IR").
type Allocation struct {
	Assigned map[ir.Reg]string // vreg -> "p0".."p15"
	Spilled  map[ir.Reg]int    // vreg -> spill slot index
}

// interference is an undirected adjacency-set graph over virtual registers.
type interference map[ir.Reg]map[ir.Reg]bool

func (g interference) addNode(r ir.Reg) {
	if g[r] == nil {
		g[r] = make(map[ir.Reg]bool)
	}
}

func (g interference) addEdge(a, b ir.Reg) {
	if a == b {
		return
	}
	g.addNode(a)
	g.addNode(b)
	g[a][b] = true
	g[b][a] = true
}

// buildInterference walks each block backwards from its live-out set: a
// definition interferes with everything live across it.
func buildInterference(cfg *CFG, lv *Liveness) interference {
	g := make(interference)
	for i, b := range cfg.Blocks {
		live := make(map[ir.Reg]bool, len(lv.Out[i]))
		for r := range lv.Out[i] {
			live[r] = true
		}
		for j := len(b.Instrs) - 1; j >= 0; j-- {
			def, uses := defUse(b.Instrs[j])
			if def != "" {
				g.addNode(def)
				for r := range live {
					g.addEdge(def, r)
				}
				delete(live, def)
			}
			for _, u := range uses {
				g.addNode(u)
				live[u] = true
			}
		}
	}
	return g
}

// Allocate colors fn's virtual registers with at most KRegisters colors
// using Chaitin-style simplification: repeatedly remove a node of degree
// < K (it is trivially colorable); when none exists, pick the
// highest-degree node as a spill candidate and remove it optimistically.
// Nodes are then re-inserted in reverse order and given the lowest color
// unused by their already-colored neighbors; a candidate with no free
// color is assigned a spill slot instead.
func Allocate(fn *ir.Function) *Allocation {
	cfg := BuildCFG(fn)
	lv := ComputeLiveness(cfg)
	g := buildInterference(cfg, lv)

	degrees := make(map[ir.Reg]int, len(g))
	removed := make(map[ir.Reg]bool, len(g))
	for r, adj := range g {
		degrees[r] = len(adj)
	}

	var stack []ir.Reg
	for len(stack) < len(g) {
		// Deterministic node order keeps the allocation stable run-to-run
		// (spec testable property 10 extends to the annotated dump).
		candidate := pickNode(g, degrees, removed, true)
		if candidate == "" {
			candidate = pickNode(g, degrees, removed, false)
		}
		removed[candidate] = true
		stack = append(stack, candidate)
		for n := range g[candidate] {
			if !removed[n] {
				degrees[n]--
			}
		}
	}

	alloc := &Allocation{Assigned: make(map[ir.Reg]string), Spilled: make(map[ir.Reg]int)}
	nextSlot := 0
	for i := len(stack) - 1; i >= 0; i-- {
		r := stack[i]
		used := make(map[string]bool)
		for n := range g[r] {
			if c, ok := alloc.Assigned[n]; ok {
				used[c] = true
			}
		}
		colored := false
		for c := 0; c < KRegisters; c++ {
			name := fmt.Sprintf("p%d", c)
			if !used[name] {
				alloc.Assigned[r] = name
				colored = true
				break
			}
		}
		if !colored {
			alloc.Spilled[r] = nextSlot
			nextSlot++
		}
	}
	return alloc
}

// pickNode selects the lexically-smallest unremoved node with degree < K
// (lowDegree), or the highest-degree unremoved node as the spill candidate.
func pickNode(g interference, degrees map[ir.Reg]int, removed map[ir.Reg]bool, lowDegree bool) ir.Reg {
	nodes := make([]ir.Reg, 0, len(g))
	for r := range g {
		if !removed[r] {
			nodes = append(nodes, r)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	if lowDegree {
		for _, r := range nodes {
			if degrees[r] < KRegisters {
				return r
			}
		}
		return ""
	}
	best := ir.Reg("")
	bestDeg := -1
	for _, r := range nodes {
		if degrees[r] > bestDeg {
			best, bestDeg = r, degrees[r]
		}
	}
	return best
}
