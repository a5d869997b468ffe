// Package sourcemap emits and validates the source map the compiler writes
// alongside the binary: newline-delimited `file:line:col:functionName`
// records indexed by bytecode offset (spec §6 "Source map"). The records
// are derived from the srcmap_push_loc instructions IR lowering brackets
// every expression with, preserving emission order (spec §5: source-map
// ordering is observable and part of the contract).
package sourcemap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/typec-lang/tcc/pkg/ir"
)

// Record is one source-map entry. Offset is the index of the originating
// instruction within the whole program's emission order, standing in for
// the bytecode offset the external encoder will substitute.
type Record struct {
	Offset   int
	File     string
	Line     int
	Col      int
	Function string
}

// FromProgram collects one Record per srcmap_push_loc instruction, in
// program emission order: preamble first, then every function.
func FromProgram(p *ir.Program) []Record {
	var out []Record
	offset := 0
	collect := func(fn *ir.Function) {
		for _, ins := range fn.Instrs {
			if ins.Op == ir.OpSrcmapPush {
				out = append(out, Record{
					Offset:   offset,
					File:     ins.Loc.File,
					Line:     ins.Loc.Line,
					Col:      ins.Loc.Column,
					Function: fn.Name,
				})
			}
			offset++
		}
	}
	if p.Preamble != nil {
		collect(p.Preamble)
	}
	for _, fn := range p.Functions {
		collect(fn)
	}
	return out
}

// Encode renders records in the on-disk format, one per line.
func Encode(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s:%d:%d:%s\n", r.File, r.Line, r.Col, r.Function)
	}
	return b.String()
}

// Decode parses the on-disk format back into records. Line offsets are
// assigned sequentially since the format itself is offset-indexed by
// position.
func Decode(data string) ([]Record, error) {
	var out []Record
	for i, line := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		if line == "" {
			continue
		}
		// File paths may themselves contain ':' (windows drives); split
		// from the right: last field is the function, the two before it
		// line and column.
		parts := strings.Split(line, ":")
		if len(parts) < 4 {
			return nil, fmt.Errorf("source map line %d: want file:line:col:function, got %q", i+1, line)
		}
		fn := parts[len(parts)-1]
		colStr := parts[len(parts)-2]
		lineStr := parts[len(parts)-3]
		file := strings.Join(parts[:len(parts)-3], ":")

		lineNo, err := strconv.Atoi(lineStr)
		if err != nil {
			return nil, fmt.Errorf("source map line %d: bad line number %q", i+1, lineStr)
		}
		colNo, err := strconv.Atoi(colStr)
		if err != nil {
			return nil, fmt.Errorf("source map line %d: bad column %q", i+1, colStr)
		}
		out = append(out, Record{Offset: i, File: file, Line: lineNo, Col: colNo, Function: fn})
	}
	return out, nil
}
