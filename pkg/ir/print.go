package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Text renders the program as the deterministic IR dump `--generate-ir`
// writes (spec testable property 10: two runs over an unchanged project
// produce byte-identical IR text). Formatting is purely positional: one
// instruction per line, operands space-separated, strings quoted only when
// they contain whitespace.
func (p *Program) Text() string {
	var b strings.Builder
	if p.Preamble != nil {
		writeFunction(&b, p.Preamble)
	}
	for _, fn := range p.Functions {
		writeFunction(&b, fn)
	}
	return b.String()
}

func writeFunction(b *strings.Builder, fn *Function) {
	fmt.Fprintf(b, "fn %s uid=%s", fn.Name, fn.UID)
	if fn.Layout != nil {
		fmt.Fprintf(b, " args=%d locals=%d", fn.Layout.ArgsByteSize, fn.Layout.LocalsByteSize)
	}
	if fn.IsCoroutine {
		b.WriteString(" coroutine")
	}
	b.WriteByte('\n')
	for _, ins := range fn.Instrs {
		b.WriteString("  ")
		b.WriteString(string(ins.Op))
		for _, arg := range ins.Args {
			b.WriteByte(' ')
			b.WriteString(formatArg(arg))
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case Reg:
		return string(v)
	case string:
		if strings.ContainsAny(v, " \t\n") {
			return strconv.Quote(v)
		}
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
