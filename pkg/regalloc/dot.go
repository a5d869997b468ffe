package regalloc

import (
	"fmt"
	"strings"
)

// DOT renders the CFG in Graphviz dot syntax, one record-shaped node per
// basic block, for the `--generate-ir` flag (spec §2 Component H "also
// generates a visualization graph" — this is the graph data; the GUI
// viewer is the external tool).
func (c *CFG) DOT() string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", c.Fn.Name)
	b.WriteString("  node [shape=box fontname=\"monospace\"];\n")

	for _, blk := range c.Blocks {
		var lines []string
		if blk.Label != "" {
			lines = append(lines, blk.Label+":")
		}
		for _, ins := range blk.Instrs {
			parts := []string{string(ins.Op)}
			for _, a := range ins.Args {
				parts = append(parts, fmt.Sprintf("%v", a))
			}
			lines = append(lines, strings.Join(parts, " "))
		}
		fmt.Fprintf(&b, "  b%d [label=%q];\n", blk.Index, strings.Join(lines, "\\l")+"\\l")
	}
	for _, blk := range c.Blocks {
		for _, s := range blk.Succs {
			fmt.Fprintf(&b, "  b%d -> b%d;\n", blk.Index, s)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
