// Package compiler is the driver that wires the front-end stages together:
// import resolution and parsing (pkg/pkggraph + pkg/parser), whole-program
// inference (pkg/infer), IR lowering (pkg/ir), and register allocation
// (pkg/regalloc). One Compiler owns one compilation's arenas, counters,
// caches, and diagnostic sink, so concurrent or repeated compilations in
// the same process share no state except pkg/source's process-wide cache
// of file contents used to render diagnostics (spec §5).
package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/infer"
	"github.com/typec-lang/tcc/pkg/ir"
	"github.com/typec-lang/tcc/pkg/parser"
	"github.com/typec-lang/tcc/pkg/pkggraph"
	"github.com/typec-lang/tcc/pkg/regalloc"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/sourcemap"
	"github.com/typec-lang/tcc/pkg/types"
)

// Options selects what a compilation produces and how diagnostics
// propagate (spec §4.6: compiler mode aborts per package, intellisense
// mode accumulates everything).
type Options struct {
	ProjectDir string
	StdlibDir  string
	Entry      string // entry file relative to ProjectDir, e.g. "main.tc"

	Mode       source.Mode
	GenerateIR bool
	NoWarnings bool

	Logger Logger
}

// Result is everything the downstream encoder and the CLI consume: the
// lowered program, per-function register assignments, the CFG DOT dumps,
// the IR text, and the source map records.
type Result struct {
	Entry       *ast.Package
	Program     *ir.Program
	Allocations map[string]*regalloc.Allocation // function uid -> coloring
	IRText      string
	DOT         map[string]string // function uid -> graphviz dump
	SourceMap   []sourcemap.Record

	Log *source.Log
}

// HasErrors reports whether any package in the compilation raised an
// error-severity diagnostic.
func (r *Result) HasErrors() bool { return r.Log.HasErrors() }

// Compiler drives one compilation.
type Compiler struct {
	opts   Options
	arena  *scope.Arena
	sink   *source.Sink
	engine *infer.Engine
	log    Logger
}

func New(opts Options) *Compiler {
	if opts.Entry == "" {
		opts.Entry = "main.tc"
	}
	log := opts.Logger
	if log == nil {
		log = NewNoOpLogger()
	}
	arena := scope.NewArena()
	sink := source.NewSink(opts.Mode)
	return &Compiler{
		opts:   opts,
		arena:  arena,
		sink:   sink,
		engine: infer.NewEngine(arena, sink),
		log:    log,
	}
}

// osFileSystem is the production pkggraph.FileSystem: plain disk reads.
type osFileSystem struct{}

func (osFileSystem) ReadFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Compile runs the full pipeline. It never returns a nil Result; callers
// check HasErrors before consuming the program. In compiler mode the
// deferred Recover absorbs the single-error unwind at this outermost
// boundary (spec §4.6), leaving the partially filled Result intact.
func (c *Compiler) Compile() (res *Result) {
	defer source.Recover()
	res = &Result{
		Allocations: make(map[string]*regalloc.Allocation),
		DOT:         make(map[string]string),
		Log:         c.sink.Log,
	}

	c.log.Info("compiling %s", filepath.Join(c.opts.ProjectDir, c.opts.Entry))
	resolver := pkggraph.NewResolver(c.opts.ProjectDir, c.opts.StdlibDir, parser.New(), c.engine, osFileSystem{}, c.arena, c.sink)
	entry := resolver.Compile(c.opts.Entry)
	res.Entry = entry
	if entry == nil || c.sink.Log.HasErrors() {
		return res
	}

	mainInst, requiresArgs := c.validateMain(entry)
	if c.sink.Log.HasErrors() {
		return res
	}

	low := ir.NewLowerer(c.engine, c.sink)
	program := low.LowerProgram()
	program.Preamble = low.LowerEntry(entry, mainInst, requiresArgs)
	program.RequiresArgs = requiresArgs
	res.Program = program

	for _, fn := range program.Functions {
		res.Allocations[fn.UID] = regalloc.Allocate(fn)
		if c.opts.GenerateIR {
			res.DOT[fn.UID] = regalloc.BuildCFG(fn).DOT()
		}
	}
	if c.opts.GenerateIR {
		res.IRText = program.Text()
	}
	res.SourceMap = sourcemap.FromProgram(program)

	c.log.Info("lowered %d functions", len(program.Functions))
	return res
}

// validateMain locates the entry package's main function and checks its
// signature (spec testable scenario S6): zero parameters or a single
// parameter (taken as the arg vector; its type is not checked), and a
// return type of void or an integer no wider than 32 bits.
func (c *Compiler) validateMain(entry *ast.Package) (*infer.FuncInstance, bool) {
	sym := entry.Root.Lookup("main")
	if sym == nil || sym.Kind != scope.KindFunction {
		c.sink.Error(source.NewError(source.KindSemantic, source.Location{File: entry.FilePath, Line: 1, Column: 1}, "no main function in entry file"))
		return nil, false
	}
	d, ok := sym.Decl.(*ast.Decl)
	if !ok {
		return nil, false
	}

	var mainInst *infer.FuncInstance
	for _, inst := range c.engine.Instances() {
		if inst.Decl == d {
			mainInst = inst
			break
		}
	}
	if mainInst == nil {
		return nil, false
	}

	requiresArgs := false
	switch len(mainInst.ParamTypes) {
	case 0:
	case 1:
		requiresArgs = true
	default:
		c.sink.Error(source.NewError(source.KindSemantic, d.Span.Start, "main takes no parameters or a single argument vector"))
	}

	if !validMainReturn(mainInst.ResultType) {
		c.sink.Error(source.NewError(source.KindSemantic, d.Span.Start, "main must return void or u32/i32 or smaller integer"))
	}
	return mainInst, requiresArgs
}

func validMainReturn(t *types.Type) bool {
	if t == nil {
		return true
	}
	b, ok := t.To(types.KindBasic)
	if !ok {
		return false
	}
	switch b.Basic {
	case types.BasicVoid, types.BasicU32, types.BasicI32, types.BasicU16, types.BasicI16, types.BasicU8, types.BasicI8:
		return true
	default:
		return false
	}
}

// RenderDiagnostics formats every accumulated diagnostic the way the CLI
// prints them, honoring the NoWarnings option.
func (c *Compiler) RenderDiagnostics(res *Result) string {
	out := ""
	for _, d := range res.Log.All() {
		if d.Severity == source.SeverityWarning && c.opts.NoWarnings {
			continue
		}
		out += d.Format()
	}
	return out
}

// WriteOutputs writes the IR text, DOT graphs, and source map next to the
// binary output directory for --generate-ir runs.
func (c *Compiler) WriteOutputs(res *Result, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if res.IRText != "" {
		if err := os.WriteFile(filepath.Join(outDir, "program.ir"), []byte(res.IRText), 0o644); err != nil {
			return err
		}
	}
	for uid, dot := range res.DOT {
		name := fmt.Sprintf("cfg_%s.dot", uid)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(dot), 0o644); err != nil {
			return err
		}
	}
	if len(res.SourceMap) > 0 {
		data := sourcemap.Encode(res.SourceMap)
		if err := os.WriteFile(filepath.Join(outDir, "program.map"), []byte(data), 0o644); err != nil {
			return err
		}
	}
	return nil
}
