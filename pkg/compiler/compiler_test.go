package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typec-lang/tcc/pkg/source"
)

// writeProject lays a project + minimal stdlib on disk so the resolver's
// three built-in imports (spec §4.2) all resolve.
func writeProject(t *testing.T, mainSrc string) (projectDir, stdlibDir string) {
	t.Helper()
	projectDir = t.TempDir()
	stdlibDir = t.TempDir()

	stdFiles := map[string]string{
		"std/string.tc":      "class String { }\n",
		"std/collections.tc": "interface Iterator { }\n",
		"std/runtime.tc":     "class ArgVector { }\n",
	}
	for rel, src := range stdFiles {
		path := filepath.Join(stdlibDir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "main.tc"), []byte(mainSrc), 0o644))
	return projectDir, stdlibDir
}

func compileProject(t *testing.T, mainSrc string) *Result {
	t.Helper()
	projectDir, stdlibDir := writeProject(t, mainSrc)
	c := New(Options{
		ProjectDir: projectDir,
		StdlibDir:  stdlibDir,
		Entry:      "main.tc",
		Mode:       source.ModeIntellisense,
		GenerateIR: true,
	})
	return c.Compile()
}

func TestCompileSimpleProgram(t *testing.T) {
	res := compileProject(t, "fn add(x: i32, y: i32) -> i32 = x + y\nfn main() -> u32 { return 0 }\n")
	require.False(t, res.HasErrors(), "diagnostics: %v", res.Log.All())
	require.NotNil(t, res.Program)

	assert.NotEmpty(t, res.Program.Functions)
	assert.NotNil(t, res.Program.Preamble)
	assert.False(t, res.Program.RequiresArgs)
	assert.Contains(t, res.IRText, "add_i32")
	assert.Contains(t, res.IRText, "call_main")
	assert.NotEmpty(t, res.Allocations)
	assert.NotEmpty(t, res.SourceMap)
}

func TestCompileMainWithArgVector(t *testing.T) {
	res := compileProject(t, "fn main(args: String[]) -> u32 { return 0 }\n")
	require.False(t, res.HasErrors(), "diagnostics: %v", res.Log.All())
	assert.True(t, res.Program.RequiresArgs)
}

func TestCompileRejectsBadMainReturn(t *testing.T) {
	res := compileProject(t, "fn main() -> bool { return true }\n")
	require.True(t, res.HasErrors())
	found := false
	for _, d := range res.Log.Errors() {
		if strings.Contains(d.Message, "main must return") {
			found = true
		}
	}
	assert.True(t, found, "expected main-return diagnostic, got %v", res.Log.Errors())
}

func TestCompileMissingMainIsError(t *testing.T) {
	res := compileProject(t, "fn helper() -> i32 = 1\n")
	require.True(t, res.HasErrors())
	found := false
	for _, d := range res.Log.Errors() {
		if strings.Contains(d.Message, "no main function") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompileTwiceIsDeterministic(t *testing.T) {
	src := "fn id<T>(x: T) -> T = x\nfn main() -> u32 { id<i32>(1); return 0 }\n"
	projectDir, stdlibDir := writeProject(t, src)

	run := func() string {
		c := New(Options{
			ProjectDir: projectDir,
			StdlibDir:  stdlibDir,
			Entry:      "main.tc",
			Mode:       source.ModeIntellisense,
			GenerateIR: true,
		})
		res := c.Compile()
		require.False(t, res.HasErrors(), "diagnostics: %v", res.Log.All())
		return res.IRText
	}
	assert.Equal(t, run(), run(), "unchanged project must produce byte-identical IR text")
}

func TestCompileReportsTypeErrorsWithLocation(t *testing.T) {
	res := compileProject(t, "fn main() -> u32 { let x: i32 = unknownName; return 0 }\n")
	require.True(t, res.HasErrors())
	d := res.Log.Errors()[0]
	assert.Equal(t, source.KindSymbol, d.Kind)
	assert.True(t, strings.HasSuffix(d.Span.Start.File, "main.tc"))
	assert.Equal(t, 1, d.Span.Start.Line)
}

func TestWriteOutputsEmitsIRAndMap(t *testing.T) {
	projectDir, stdlibDir := writeProject(t, "fn main() -> u32 { return 0 }\n")
	c := New(Options{
		ProjectDir: projectDir,
		StdlibDir:  stdlibDir,
		Entry:      "main.tc",
		Mode:       source.ModeIntellisense,
		GenerateIR: true,
	})
	res := c.Compile()
	require.False(t, res.HasErrors(), "diagnostics: %v", res.Log.All())

	outDir := filepath.Join(projectDir, "bin")
	require.NoError(t, c.WriteOutputs(res, outDir))

	irData, err := os.ReadFile(filepath.Join(outDir, "program.ir"))
	require.NoError(t, err)
	assert.Contains(t, string(irData), "fn main")

	mapData, err := os.ReadFile(filepath.Join(outDir, "program.map"))
	require.NoError(t, err)
	assert.Contains(t, string(mapData), "main.tc")
}
