// Package regalloc consumes lowered IR and assigns physical registers to
// its virtual registers by interference-graph coloring, emitting spill
// slots where the graph is not K-colorable (spec §2 Component H). It also
// builds the control-flow graph backing both the liveness analysis and the
// DOT visualization `--generate-ir` writes.
package regalloc

import (
	"strings"

	"github.com/typec-lang/tcc/pkg/ir"
)

// Block is one basic block: a maximal run of instructions with a single
// entry (its leading label, if any) and a single exit (its trailing jump,
// comparison-jump, or return).
type Block struct {
	Index  int
	Label  string // "" for a fall-through block with no leading label
	Instrs []ir.Instr
	Succs  []int
}

// CFG is a function's control-flow graph.
type CFG struct {
	Fn     *ir.Function
	Blocks []*Block
}

// BuildCFG splits a function's linear instruction list into basic blocks.
// Leaders are the first instruction, every label, and every instruction
// following a jump or return; edges follow jump targets and fall-through.
func BuildCFG(fn *ir.Function) *CFG {
	cfg := &CFG{Fn: fn}
	if len(fn.Instrs) == 0 {
		return cfg
	}

	leader := make([]bool, len(fn.Instrs))
	leader[0] = true
	for i, ins := range fn.Instrs {
		if ins.Op == ir.OpLabel {
			leader[i] = true
		}
		if isTerminator(ins) && i+1 < len(fn.Instrs) {
			leader[i+1] = true
		}
	}

	labelBlock := make(map[string]int)
	for i := 0; i < len(fn.Instrs); {
		j := i + 1
		for j < len(fn.Instrs) && !leader[j] {
			j++
		}
		b := &Block{Index: len(cfg.Blocks), Instrs: fn.Instrs[i:j]}
		if fn.Instrs[i].Op == ir.OpLabel {
			if name, ok := fn.Instrs[i].Args[0].(string); ok {
				b.Label = name
				labelBlock[name] = b.Index
			}
		}
		cfg.Blocks = append(cfg.Blocks, b)
		i = j
	}

	for _, b := range cfg.Blocks {
		last := b.Instrs[len(b.Instrs)-1]
		if target, ok := jumpTarget(last); ok {
			if idx, found := labelBlock[target]; found {
				b.Succs = append(b.Succs, idx)
			}
		}
		if fallsThrough(last) && b.Index+1 < len(cfg.Blocks) {
			b.Succs = append(b.Succs, b.Index+1)
		}
	}
	return cfg
}

func isTerminator(ins ir.Instr) bool {
	op := string(ins.Op)
	switch {
	case ins.Op == ir.OpJump, ins.Op == ir.OpRetVoid:
		return true
	case strings.HasPrefix(op, "j_cmp_"), strings.HasPrefix(op, "j_eq_null_"):
		return true
	case strings.HasPrefix(op, "ret_"):
		return true
	}
	return false
}

// jumpTarget extracts the label operand of a control-transfer instruction.
func jumpTarget(ins ir.Instr) (string, bool) {
	op := string(ins.Op)
	switch {
	case ins.Op == ir.OpJump:
		if len(ins.Args) > 0 {
			if s, ok := ins.Args[0].(string); ok {
				return s, true
			}
		}
	case strings.HasPrefix(op, "j_cmp_"), strings.HasPrefix(op, "j_eq_null_"):
		if len(ins.Args) > 0 {
			if s, ok := ins.Args[len(ins.Args)-1].(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// fallsThrough reports whether control can continue to the next block:
// everything except an unconditional jump or a return.
func fallsThrough(ins ir.Instr) bool {
	op := string(ins.Op)
	if ins.Op == ir.OpJump || ins.Op == ir.OpRetVoid {
		return false
	}
	if strings.HasPrefix(op, "ret_") {
		return false
	}
	return true
}
