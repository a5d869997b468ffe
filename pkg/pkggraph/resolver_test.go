package pkggraph

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
)

// memFS is an in-memory FileSystem keyed by the exact path the resolver
// asks for (already filepath.Clean'd via normalize/filepath.Join).
type memFS map[string]string

func (m memFS) ReadFile(path string) (string, bool) {
	src, ok := m[path]
	return src, ok
}

// fakeParser treats the "source" as just the package's own name and wires
// up whatever Imports/exported-symbols a test needs via a side table,
// standing in for the real participle-based parser (an external
// collaborator per spec §6).
type fakeParser struct {
	arena     *scope.Arena
	imports   map[string][]ast.ImportDirective
	exported  map[string][]string // filePath -> symbol names declared at root, non-local
	local     map[string][]string // filePath -> symbol names declared at root, local
	failParse map[string]bool     // filePath -> Parse returns an error
}

func (p *fakeParser) Parse(filePath, _ string, arena *scope.Arena, sink *source.Sink) (*ast.Package, error) {
	if p.failParse[filePath] {
		return nil, fmt.Errorf("syntax error in %s", filePath)
	}
	root := arena.NewContext(nil, scope.Owner{Kind: scope.OwnerPackage})
	pkg := ast.NewPackage(filePath, root, arena.Global, sink)
	pkg.Imports = p.imports[filePath]

	for _, name := range p.exported[filePath] {
		root.AddSymbol(sink, source.Location{}, name, &scope.Symbol{Kind: scope.KindFunction, Name: name})
	}
	for _, name := range builtinSymbolNames[filePath] {
		root.AddSymbol(sink, source.Location{}, name, &scope.Symbol{Kind: scope.KindType, Name: name})
	}
	for _, name := range p.local[filePath] {
		sym := &scope.Symbol{Kind: scope.KindFunction, Name: name, IsLocal: true}
		root.AddSymbol(sink, source.Location{}, name, sym)
	}
	return pkg, nil
}

type fakeInferrer struct{ calls []string }

func (f *fakeInferrer) Infer(pkg *ast.Package) { f.calls = append(f.calls, pkg.FilePath) }

func newTestResolver(t *testing.T, fs memFS, parser *fakeParser, infer *fakeInferrer) *Resolver {
	t.Helper()
	arena := scope.NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	return NewResolver("/proj", "/stdlib", parser, infer, fs, arena, sink)
}

func stdlibBuiltinFiles() memFS {
	return memFS{
		"/stdlib/std/string.tc":      "",
		"/stdlib/std/collections.tc": "",
		"/stdlib/std/runtime.tc":     "",
	}
}

// builtinSymbolNames lets fakeParser resolve the three injected built-in
// imports (spec §4.2) cleanly, the way a real stdlib file would declare
// String/Iterator/ArgVector at its root.
var builtinSymbolNames = map[string][]string{
	"/stdlib/std/string.tc":      {"String"},
	"/stdlib/std/collections.tc": {"Iterator"},
	"/stdlib/std/runtime.tc":     {"ArgVector"},
}

func TestCompileInjectsBuiltinsAndInfersEntry(t *testing.T) {
	fs := stdlibBuiltinFiles()
	entry := filepath.Join("/proj", "main.tc")
	fs[entry] = ""

	parser := &fakeParser{imports: map[string][]ast.ImportDirective{}}
	infer := &fakeInferrer{}
	r := newTestResolver(t, fs, parser, infer)

	pkg := r.Compile("main.tc")
	require.NotNil(t, pkg)
	assert.Len(t, pkg.Imports, 3, "expected the three built-in imports injected")
	assert.Contains(t, infer.calls, entry)
}

func TestResolveImportRegistersNamedExternalSymbol(t *testing.T) {
	fs := stdlibBuiltinFiles()
	entry := filepath.Join("/proj", "main.tc")
	lib := filepath.Join("/proj", "lib.tc")
	fs[entry] = ""
	fs[lib] = ""

	parser := &fakeParser{
		imports: map[string][]ast.ImportDirective{
			entry: {{BasePath: []string{"lib"}, ActualName: "Helper"}},
		},
		exported: map[string][]string{lib: {"Helper"}},
	}
	infer := &fakeInferrer{}
	r := newTestResolver(t, fs, parser, infer)

	pkg := r.Compile("main.tc")
	sym := pkg.Root.Lookup("Helper")
	require.NotNil(t, sym)
	assert.True(t, sym.External)
}

func TestImportingLocalSymbolIsFatal(t *testing.T) {
	fs := stdlibBuiltinFiles()
	entry := filepath.Join("/proj", "main.tc")
	lib := filepath.Join("/proj", "lib.tc")
	fs[entry] = ""
	fs[lib] = ""

	parser := &fakeParser{
		imports: map[string][]ast.ImportDirective{
			entry: {{BasePath: []string{"lib"}, ActualName: "Secret"}},
		},
		local: map[string][]string{lib: {"Secret"}},
	}
	infer := &fakeInferrer{}
	r := newTestResolver(t, fs, parser, infer)

	pkg := r.Compile("main.tc")
	assert.Nil(t, pkg.Root.Lookup("Secret"))
	assert.True(t, r.sink.Log.HasErrors())
}

func TestStarImportBindsEveryEligibleSymbol(t *testing.T) {
	fs := stdlibBuiltinFiles()
	entry := filepath.Join("/proj", "main.tc")
	lib := filepath.Join("/proj", "lib.tc")
	fs[entry] = ""
	fs[lib] = ""

	parser := &fakeParser{
		imports: map[string][]ast.ImportDirective{
			entry: {{BasePath: []string{"lib"}, ActualName: "*"}},
		},
		exported: map[string][]string{lib: {"A", "B"}},
		local:    map[string][]string{lib: {"Hidden"}},
	}
	infer := &fakeInferrer{}
	r := newTestResolver(t, fs, parser, infer)

	pkg := r.Compile("main.tc")
	assert.NotNil(t, pkg.Root.Lookup("A"))
	assert.NotNil(t, pkg.Root.Lookup("B"))
	assert.Nil(t, pkg.Root.Lookup("Hidden"))
}

func TestDuplicateImportDirectiveIsNoOp(t *testing.T) {
	fs := stdlibBuiltinFiles()
	entry := filepath.Join("/proj", "main.tc")
	lib := filepath.Join("/proj", "lib.tc")
	fs[entry] = ""
	fs[lib] = ""

	dir := ast.ImportDirective{BasePath: []string{"lib"}, ActualName: "Helper"}
	parser := &fakeParser{
		imports:  map[string][]ast.ImportDirective{entry: {dir, dir}},
		exported: map[string][]string{lib: {"Helper"}},
	}
	infer := &fakeInferrer{}
	r := newTestResolver(t, fs, parser, infer)

	pkg := r.Compile("main.tc")
	// Resolved exactly once despite the duplicate directive: infer only
	// ran once per distinct package path.
	count := 0
	for _, p := range infer.calls {
		if p == lib {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.NotNil(t, pkg.Root.Lookup("Helper"))
}

func TestImportCycleResolvesWithoutLooping(t *testing.T) {
	fs := stdlibBuiltinFiles()
	entry := filepath.Join("/proj", "main.tc")
	a := filepath.Join("/proj", "a.tc")
	b := filepath.Join("/proj", "b.tc")
	fs[entry] = ""
	fs[a] = ""
	fs[b] = ""

	parser := &fakeParser{
		imports: map[string][]ast.ImportDirective{
			entry: {{BasePath: []string{"a"}, ActualName: "A"}},
			a:     {{BasePath: []string{"b"}, ActualName: "B"}},
			b:     {{BasePath: []string{"a"}, ActualName: "A"}},
		},
		exported: map[string][]string{
			a: {"A"},
			b: {"B"},
		},
	}
	infer := &fakeInferrer{}
	r := newTestResolver(t, fs, parser, infer)

	// If cycle tolerance were broken this call would recurse forever; the
	// test passing at all is the assertion.
	pkg := r.Compile("main.tc")
	require.NotNil(t, pkg)
	assert.NotNil(t, pkg.Root.Lookup("A"))
}

func TestDepFailureAbortsOnlyThatPackageInCompilerMode(t *testing.T) {
	fs := stdlibBuiltinFiles()
	entry := filepath.Join("/proj", "main.tc")
	good := filepath.Join("/proj", "good.tc")
	bad := filepath.Join("/proj", "bad.tc")
	fs[entry] = ""
	fs[good] = ""
	fs[bad] = ""

	parser := &fakeParser{
		imports: map[string][]ast.ImportDirective{
			entry: {
				{BasePath: []string{"good"}, ActualName: "Helper"},
				{BasePath: []string{"bad"}, ActualName: "Broken"},
			},
		},
		exported:  map[string][]string{good: {"Helper"}},
		failParse: map[string]bool{bad: true},
	}
	infer := &fakeInferrer{}
	arena := scope.NewArena()
	sink := source.NewSink(source.ModeCompiler)
	r := NewResolver("/proj", "/stdlib", parser, infer, fs, arena, sink)

	// The bad dependency's parse failure must abort only its own package
	// resolution: the entry package still comes back, the import resolved
	// before the failure is intact, and the failure is reported twice —
	// once at the broken package, once cascaded at the importing directive.
	pkg := r.Compile("main.tc")
	require.NotNil(t, pkg, "a broken dependency must not unwind the whole compilation")
	assert.NotNil(t, pkg.Root.Lookup("Helper"), "imports registered before the failure survive")
	require.True(t, sink.Log.HasErrors())

	var parseErrs, cascadeErrs int
	for _, d := range sink.Log.Errors() {
		switch d.Kind {
		case source.KindParse:
			parseErrs++
		case source.KindSymbol:
			cascadeErrs++
		}
	}
	assert.Equal(t, 1, parseErrs, "the broken package reports its own parse error")
	assert.Equal(t, 1, cascadeErrs, "the importer reports the cascade at its import site")
}

func TestOrderReflectsLeavesFirstPostOrder(t *testing.T) {
	fs := stdlibBuiltinFiles()
	entry := filepath.Join("/proj", "main.tc")
	lib := filepath.Join("/proj", "lib.tc")
	fs[entry] = ""
	fs[lib] = ""

	parser := &fakeParser{
		imports: map[string][]ast.ImportDirective{
			entry: {{BasePath: []string{"lib"}, ActualName: "Helper"}},
		},
		exported: map[string][]string{lib: {"Helper"}},
	}
	infer := &fakeInferrer{}
	r := newTestResolver(t, fs, parser, infer)
	r.Compile("main.tc")

	order := r.Order()
	require.Contains(t, order, lib)
	require.Contains(t, order, entry)
	assert.Equal(t, entry, order[len(order)-1], "the entry package is the root of the DAG, so it finishes last")

	libIdx, entryIdx := -1, -1
	for i, p := range order {
		switch p {
		case lib:
			libIdx = i
		case entry:
			entryIdx = i
		}
	}
	assert.Less(t, libIdx, entryIdx, "dependency must finish resolving before its importer")
}
