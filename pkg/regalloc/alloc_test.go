package regalloc

import (
	"fmt"
	"strings"
	"testing"

	"github.com/typec-lang/tcc/pkg/ir"
)

// fn body: r1 = const, r2 = const, r3 = r1 + r2, branch on r3, two exits.
func sampleFunction() *ir.Function {
	return &ir.Function{
		UID:  "9",
		Name: "sample",
		Instrs: []ir.Instr{
			{Op: ir.OpLabel, Args: []any{"9"}},
			{Op: ir.Op("const_i32"), Args: []any{ir.Reg("r1"), int64(1)}},
			{Op: ir.Op("const_i32"), Args: []any{ir.Reg("r2"), int64(2)}},
			{Op: ir.Op("add_i32"), Args: []any{ir.Reg("r3"), ir.Reg("r1"), ir.Reg("r2")}},
			{Op: ir.Op("const_i32"), Args: []any{ir.Reg("r4"), int64(0)}},
			{Op: ir.Op("j_cmp_i32"), Args: []any{ir.Reg("r3"), ir.Reg("r4"), 0, "9_else1"}},
			{Op: ir.Op("ret_i32"), Args: []any{ir.Reg("r3")}},
			{Op: ir.OpLabel, Args: []any{"9_else1"}},
			{Op: ir.Op("ret_i32"), Args: []any{ir.Reg("r4")}},
		},
	}
}

func TestBuildCFGSplitsBlocksAtLabelsAndTerminators(t *testing.T) {
	cfg := BuildCFG(sampleFunction())
	// label-run, the ret after the conditional jump, the else block.
	if len(cfg.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(cfg.Blocks))
	}

	entry := cfg.Blocks[0]
	if len(entry.Succs) != 2 {
		t.Fatalf("entry succs = %v, want fall-through and jump target", entry.Succs)
	}
	if cfg.Blocks[2].Label != "9_else1" {
		t.Errorf("else block label = %q", cfg.Blocks[2].Label)
	}
	for _, b := range cfg.Blocks[1:] {
		if len(b.Succs) != 0 {
			t.Errorf("return block %d has successors %v", b.Index, b.Succs)
		}
	}
}

func TestLivenessSeesUseAcrossBlocks(t *testing.T) {
	cfg := BuildCFG(sampleFunction())
	lv := ComputeLiveness(cfg)

	// r4 is defined in the entry block and used in the else block, so it
	// must be live-in there and live-out of the entry.
	elseIdx := 2
	if !lv.In[elseIdx][ir.Reg("r4")] {
		t.Error("r4 should be live-in at the else block")
	}
	if !lv.Out[0][ir.Reg("r4")] {
		t.Error("r4 should be live-out of the entry block")
	}
	// r1 dies at the add.
	if lv.Out[0][ir.Reg("r1")] {
		t.Error("r1 should not survive the entry block")
	}
}

func TestAllocateAssignsDistinctRegistersToInterferingValues(t *testing.T) {
	alloc := Allocate(sampleFunction())

	// r1 and r2 are simultaneously live across the add; they must not
	// share a physical register.
	a, aok := alloc.Assigned[ir.Reg("r1")]
	b, bok := alloc.Assigned[ir.Reg("r2")]
	if !aok || !bok {
		t.Fatalf("r1/r2 not colored: %+v spilled: %+v", alloc.Assigned, alloc.Spilled)
	}
	if a == b {
		t.Errorf("r1 and r2 interfere but share %s", a)
	}
	if len(alloc.Spilled) != 0 {
		t.Errorf("small function should not spill, got %v", alloc.Spilled)
	}
}

func TestAllocateSpillsWhenPressureExceedsK(t *testing.T) {
	// K+4 values all defined up front and all used at the end: more
	// simultaneously-live values than physical registers.
	n := KRegisters + 4
	fn := &ir.Function{UID: "1", Name: "pressure"}
	fn.Instrs = append(fn.Instrs, ir.Instr{Op: ir.OpLabel, Args: []any{"1"}})
	regs := make([]ir.Reg, n)
	for i := 0; i < n; i++ {
		regs[i] = ir.Reg(fmt.Sprintf("v%d", i))
		fn.Instrs = append(fn.Instrs, ir.Instr{Op: ir.Op("const_i32"), Args: []any{regs[i], int64(i)}})
	}
	// One instruction reading every value at once keeps them all live
	// across every definition above.
	uses := []any{ir.Reg("sink")}
	for i := 0; i < n; i++ {
		uses = append(uses, regs[i])
	}
	fn.Instrs = append(fn.Instrs,
		ir.Instr{Op: ir.Op("add_i32"), Args: uses},
		ir.Instr{Op: ir.Op("ret_i32"), Args: []any{ir.Reg("sink")}},
	)

	alloc := Allocate(fn)
	if len(alloc.Spilled) == 0 {
		t.Fatalf("%d simultaneously live values with K=%d must spill", n, KRegisters)
	}
	// Spill slots are dense and unique.
	seen := map[int]bool{}
	for _, slot := range alloc.Spilled {
		if seen[slot] {
			t.Errorf("spill slot %d assigned twice", slot)
		}
		seen[slot] = true
	}
}

func TestAllocationIsDeterministic(t *testing.T) {
	a := Allocate(sampleFunction())
	b := Allocate(sampleFunction())
	if len(a.Assigned) != len(b.Assigned) {
		t.Fatal("allocation sizes differ between runs")
	}
	for reg, color := range a.Assigned {
		if b.Assigned[reg] != color {
			t.Errorf("register %s colored %s then %s", reg, color, b.Assigned[reg])
		}
	}
}

func TestDOTExportContainsBlocksAndEdges(t *testing.T) {
	cfg := BuildCFG(sampleFunction())
	dot := cfg.DOT()
	for _, want := range []string{"digraph", "b0", "b1", "b2", "->"} {
		if !strings.Contains(dot, want) {
			t.Errorf("dot output missing %q:\n%s", want, dot)
		}
	}
}
