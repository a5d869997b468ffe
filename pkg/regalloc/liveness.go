package regalloc

import (
	"strings"

	"github.com/typec-lang/tcc/pkg/ir"
)

// defUse classifies an instruction's register operands into the register it
// defines (at most one) and the registers it reads. The IR's convention is
// positional: most value-producing families write their first register
// operand; stores, argument loads, pushes, jumps, and returns only read.
func defUse(ins ir.Instr) (def ir.Reg, uses []ir.Reg) {
	regs := regOperands(ins)
	if len(regs) == 0 {
		return "", nil
	}
	op := string(ins.Op)
	switch {
	case ins.Op == ir.OpSrcmapPush, ins.Op == ir.OpSrcmapPop, ins.Op == ir.OpLabel:
		return "", nil
	case strings.HasPrefix(op, "j_cmp_"), strings.HasPrefix(op, "j_eq_null_"):
		return "", regs
	case strings.HasPrefix(op, "ret_"):
		return "", regs
	case strings.HasPrefix(op, "push_"), strings.HasPrefix(op, "fn_set_reg_"):
		return "", regs
	case strings.HasPrefix(op, "tmp_") && len(ins.Args) >= 3 && ins.Args[1] == "reg":
		// store form: tmp_<t> uid reg src
		return "", regs
	case strings.HasPrefix(op, "global_"):
		return "", regs
	case strings.HasPrefix(op, "s_storef_"), strings.HasPrefix(op, "c_storef_"), strings.HasPrefix(op, "a_storef_"):
		return "", regs
	case strings.HasPrefix(op, "closure_push_env_"):
		return "", regs
	case strings.HasPrefix(op, "coroutine_yield"):
		return "", regs
	default:
		return regs[0], regs[1:]
	}
}

func regOperands(ins ir.Instr) []ir.Reg {
	var out []ir.Reg
	for _, a := range ins.Args {
		if r, ok := a.(ir.Reg); ok && r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Liveness holds the per-block live-in/live-out virtual-register sets.
type Liveness struct {
	In  []map[ir.Reg]bool
	Out []map[ir.Reg]bool
}

// ComputeLiveness runs the standard backward iterative dataflow over the
// CFG until the live sets stop changing.
func ComputeLiveness(cfg *CFG) *Liveness {
	n := len(cfg.Blocks)
	lv := &Liveness{In: make([]map[ir.Reg]bool, n), Out: make([]map[ir.Reg]bool, n)}
	for i := 0; i < n; i++ {
		lv.In[i] = make(map[ir.Reg]bool)
		lv.Out[i] = make(map[ir.Reg]bool)
	}

	changed := true
	for changed {
		changed = false
		for i := n - 1; i >= 0; i-- {
			b := cfg.Blocks[i]

			out := make(map[ir.Reg]bool)
			for _, s := range b.Succs {
				for r := range lv.In[s] {
					out[r] = true
				}
			}

			in := make(map[ir.Reg]bool, len(out))
			for r := range out {
				in[r] = true
			}
			for j := len(b.Instrs) - 1; j >= 0; j-- {
				def, uses := defUse(b.Instrs[j])
				if def != "" {
					delete(in, def)
				}
				for _, u := range uses {
					in[u] = true
				}
			}

			if !sameSet(in, lv.In[i]) || !sameSet(out, lv.Out[i]) {
				lv.In[i], lv.Out[i] = in, out
				changed = true
			}
		}
	}
	return lv
}

func sameSet(a, b map[ir.Reg]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for r := range a {
		if !b[r] {
			return false
		}
	}
	return true
}
