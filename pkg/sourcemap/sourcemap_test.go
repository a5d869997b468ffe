package sourcemap

import (
	"strings"
	"testing"

	"github.com/typec-lang/tcc/pkg/ir"
	"github.com/typec-lang/tcc/pkg/source"
)

func sampleRecords() []Record {
	return []Record{
		{Offset: 0, File: "main.tc", Line: 1, Col: 4, Function: "main"},
		{Offset: 3, File: "main.tc", Line: 2, Col: 9, Function: "main"},
		{Offset: 7, File: "lib.tc", Line: 10, Col: 1, Function: "helper"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	encoded := Encode(sampleRecords())
	want := "main.tc:1:4:main\nmain.tc:2:9:main\nlib.tc:10:1:helper\n"
	if encoded != want {
		t.Fatalf("encoded = %q, want %q", encoded, want)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("decoded %d records, want 3", len(decoded))
	}
	for i, r := range decoded {
		orig := sampleRecords()[i]
		if r.File != orig.File || r.Line != orig.Line || r.Col != orig.Col || r.Function != orig.Function {
			t.Errorf("record %d = %+v, want %+v", i, r, orig)
		}
	}
}

func TestDecodeRejectsMalformedLines(t *testing.T) {
	tests := []string{
		"main.tc:1:main",
		"main.tc:x:2:main",
		"main.tc:1:y:main",
	}
	for _, src := range tests {
		if _, err := Decode(src); err == nil {
			t.Errorf("Decode(%q) should fail", src)
		}
	}
}

func TestFromProgramIndexesPushLocInstructions(t *testing.T) {
	loc := source.Location{File: "main.tc", Line: 3, Column: 5}
	prog := &ir.Program{
		Functions: []*ir.Function{{
			UID:  "7",
			Name: "add",
			Instrs: []ir.Instr{
				{Op: ir.OpLabel, Args: []any{"7"}},
				{Op: ir.OpSrcmapPush, Loc: loc, Args: []any{"main.tc", 3, 5, "add"}},
				{Op: ir.Op("add_i32"), Args: []any{ir.Reg("r1"), ir.Reg("r2"), ir.Reg("r3")}},
				{Op: ir.OpSrcmapPop, Loc: loc},
			},
		}},
	}
	records := FromProgram(prog)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	r := records[0]
	if r.Offset != 1 || r.File != "main.tc" || r.Line != 3 || r.Col != 5 || r.Function != "add" {
		t.Fatalf("record = %+v", r)
	}
}

func TestV3RoundTripValidates(t *testing.T) {
	if err := Validate(sampleRecords(), "program.map"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestV3EncodesSourceAndNameTables(t *testing.T) {
	data, err := ToV3(sampleRecords(), "program.map")
	if err != nil {
		t.Fatalf("ToV3: %v", err)
	}
	text := string(data)
	for _, want := range []string{`"version":3`, "main.tc", "lib.tc", "helper"} {
		if !strings.Contains(text, want) {
			t.Errorf("v3 output missing %q: %s", want, text)
		}
	}
}
