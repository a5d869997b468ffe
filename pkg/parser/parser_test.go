package parser

import (
	"testing"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
)

func parseOne(t *testing.T, src string) *ast.Package {
	t.Helper()
	arena := scope.NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	pkg, err := New().Parse("test.tc", src, arena, sink)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return pkg
}

func TestParseFunctionForms(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		declName string
		params   int
		hasBody  bool
	}{
		{"expression body", "fn add(x: i32, y: i32) -> i32 = x + y", "add", 2, true},
		{"block body", "fn main() -> u32 { return 0 }", "main", 0, true},
		{"generic", "fn id<T>(x: T) -> T = x", "id", 1, true},
		{"void return", "fn log(msg: char[]) { }", "log", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := parseOne(t, tt.src)
			if len(pkg.Decls) != 1 {
				t.Fatalf("expected 1 decl, got %d", len(pkg.Decls))
			}
			d := pkg.Decls[0]
			if d.Kind != ast.DeclFunction {
				t.Fatalf("expected function decl, got %s", d.Kind)
			}
			if d.Name != tt.declName {
				t.Errorf("name = %q, want %q", d.Name, tt.declName)
			}
			if len(d.Params) != tt.params {
				t.Errorf("params = %d, want %d", len(d.Params), tt.params)
			}
			if (d.Body != nil) != tt.hasBody {
				t.Errorf("body presence = %v, want %v", d.Body != nil, tt.hasBody)
			}
			if d.Context == nil {
				t.Error("function has no opened scope context")
			}
			if sym := pkg.Root.Lookup(tt.declName); sym == nil || sym.Kind != scope.KindFunction {
				t.Errorf("function %q not registered at package root", tt.declName)
			}
		})
	}
}

func TestParseExpressionBodyDesugarsToReturn(t *testing.T) {
	pkg := parseOne(t, "fn add(x: i32, y: i32) -> i32 = x + y")
	body := pkg.Decls[0].Body
	if len(body.Stmts) != 1 || body.Stmts[0].Kind != ast.StmtReturn {
		t.Fatalf("expected single return statement, got %+v", body.Stmts)
	}
	ret := body.Stmts[0].Expr
	if ret.Kind != ast.ExprBinary || ret.Op != "+" {
		t.Fatalf("expected binary + expression, got kind=%s op=%q", ret.Kind, ret.Op)
	}
}

func TestParseVariantDeclaration(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		ctors []string
	}{
		{"two constructors", "type V = A(x: i32) | B", []string{"A", "B"}},
		{"solo constructor", "type W = Only(v: f64)", []string{"Only"}},
		{"bare alternatives", "type Color = Red | Green | Blue", []string{"Red", "Green", "Blue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := parseOne(t, tt.src)
			d := pkg.Decls[0]
			if d.Kind != ast.DeclVariant {
				t.Fatalf("expected variant decl, got %s", d.Kind)
			}
			if len(d.Constructors) != len(tt.ctors) {
				t.Fatalf("ctors = %d, want %d", len(d.Constructors), len(tt.ctors))
			}
			for i, want := range tt.ctors {
				if d.Constructors[i].Name != want {
					t.Errorf("ctor[%d] = %q, want %q", i, d.Constructors[i].Name, want)
				}
			}
		})
	}
}

func TestParseTypeAliasStaysAlias(t *testing.T) {
	pkg := parseOne(t, "type Handle = u64")
	d := pkg.Decls[0]
	if d.Kind != ast.DeclTypeAlias {
		t.Fatalf("expected type alias, got %s", d.Kind)
	}
	if d.AliasTarget.Name != "u64" {
		t.Errorf("alias target = %q, want u64", d.AliasTarget.Name)
	}
}

func TestParseStructTypeBody(t *testing.T) {
	pkg := parseOne(t, "type Point = struct { x: f32, y: f32 }")
	d := pkg.Decls[0]
	if d.Kind != ast.DeclTypeAlias || d.AliasTarget.Kind != ast.TypeRefStruct {
		t.Fatalf("expected struct-bodied alias, got %s / %v", d.Kind, d.AliasTarget)
	}
	if len(d.AliasTarget.Fields) != 2 {
		t.Errorf("fields = %d, want 2", len(d.AliasTarget.Fields))
	}
}

func TestParseImports(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		base   []string
		actual string
		alias  string
		subs   int
	}{
		{"named", "from std.string import String\nfn main() -> u32 { return 0 }", []string{"std", "string"}, "String", "", 0},
		{"aliased", "from std.io import Writer as W\nfn main() -> u32 { return 0 }", []string{"std", "io"}, "Writer", "W", 0},
		{"star", "from std.math import *\nfn main() -> u32 { return 0 }", []string{"std", "math"}, "*", "", 0},
		{"sub-import", "from std.net import http.Client\nfn main() -> u32 { return 0 }", []string{"std", "net"}, "Client", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := parseOne(t, tt.src)
			if len(pkg.Imports) != 1 {
				t.Fatalf("imports = %d, want 1", len(pkg.Imports))
			}
			imp := pkg.Imports[0]
			if len(imp.BasePath) != len(tt.base) {
				t.Fatalf("basePath = %v, want %v", imp.BasePath, tt.base)
			}
			if imp.ActualName != tt.actual {
				t.Errorf("actualName = %q, want %q", imp.ActualName, tt.actual)
			}
			if imp.Alias != tt.alias {
				t.Errorf("alias = %q, want %q", imp.Alias, tt.alias)
			}
			if len(imp.SubImports) != tt.subs {
				t.Errorf("subImports = %d, want %d", len(imp.SubImports), tt.subs)
			}
		})
	}
}

func TestParseClassWithMembers(t *testing.T) {
	src := `
class Counter {
	let value: i32
	fn init(start: i32) { this.value = start }
	fn get() -> i32 = this.value
	static fn zero() -> i32 = 0
	static { }
}
`
	pkg := parseOne(t, src)
	d := pkg.Decls[0]
	if d.Kind != ast.DeclClass {
		t.Fatalf("expected class decl, got %s", d.Kind)
	}
	if len(d.Attributes) != 1 || d.Attributes[0].Name != "value" {
		t.Errorf("attributes = %+v", d.Attributes)
	}
	if len(d.Methods) != 3 {
		t.Fatalf("methods = %d, want 3", len(d.Methods))
	}
	if !d.Methods[2].Static {
		t.Error("zero() should be static")
	}
	if d.StaticInit == nil {
		t.Error("static initializer block not captured")
	}
	for _, m := range d.Methods {
		if !m.Context.Flags.WithinClass {
			t.Errorf("method %q context lacks WithinClass", m.Name)
		}
	}
}

func TestParseOperatorPrecedence(t *testing.T) {
	pkg := parseOne(t, "fn f(a: i32, b: i32, c: i32) -> i32 = a + b * c")
	ret := pkg.Decls[0].Body.Stmts[0].Expr
	if ret.Op != "+" {
		t.Fatalf("top op = %q, want +", ret.Op)
	}
	if ret.Right.Kind != ast.ExprBinary || ret.Right.Op != "*" {
		t.Fatalf("right arm should be b*c, got kind=%s op=%q", ret.Right.Kind, ret.Right.Op)
	}
}

func TestParseGenericCallKeepsTypeArgs(t *testing.T) {
	pkg := parseOne(t, "fn main() -> u32 { id<i32>(1); return 0 }")
	call := pkg.Decls[0].Body.Stmts[0].Expr
	if call.Kind != ast.ExprCall {
		t.Fatalf("expected call, got %s", call.Kind)
	}
	if len(call.TypeArgs) != 1 || call.TypeArgs[0].Name != "i32" {
		t.Fatalf("typeArgs = %+v", call.TypeArgs)
	}
}

func TestParseComparisonIsNotGenericCall(t *testing.T) {
	pkg := parseOne(t, "fn f(a: i32, b: i32) -> bool = a < b")
	ret := pkg.Decls[0].Body.Stmts[0].Expr
	if ret.Kind != ast.ExprBinary || ret.Op != "<" {
		t.Fatalf("expected < comparison, got kind=%s op=%q", ret.Kind, ret.Op)
	}
}

func TestParseStatements(t *testing.T) {
	src := `
fn main() -> u32 {
	let mut total: i32 = 0
	while total < 10 { total += 1 }
	for let i = 0; i < 3; i = i + 1 { total = total + i }
	foreach x in [1, 2, 3] { total = total + x }
	if total > 5 { return 1 } else { return 0 }
}
`
	pkg := parseOne(t, src)
	stmts := pkg.Decls[0].Body.Stmts
	wantKinds := []ast.StmtKind{ast.StmtLet, ast.StmtWhile, ast.StmtFor, ast.StmtForeach, ast.StmtExpr}
	if len(stmts) != len(wantKinds) {
		t.Fatalf("stmts = %d, want %d", len(stmts), len(wantKinds))
	}
	for i, want := range wantKinds {
		if stmts[i].Kind != want {
			t.Errorf("stmt[%d] = %s, want %s", i, stmts[i].Kind, want)
		}
	}
	ifExpr := stmts[4].Expr
	if ifExpr.Kind != ast.ExprIf || ifExpr.Else == nil {
		t.Fatalf("expected if-else expression, got %s", ifExpr.Kind)
	}
}

func TestParseLambdaOpensOwnContext(t *testing.T) {
	pkg := parseOne(t, "fn main() -> u32 { let f = fn(x: i32) -> i32 = x; return 0 }")
	let := pkg.Decls[0].Body.Stmts[0]
	lambda := let.Expr
	if lambda.Kind != ast.ExprLambda {
		t.Fatalf("expected lambda, got %s", lambda.Kind)
	}
	if lambda.Context == nil || lambda.Context.Owner.Kind != scope.OwnerLambda {
		t.Fatal("lambda did not open an OwnerLambda context")
	}
	if lambda.Context.Parent != pkg.Decls[0].Context {
		t.Error("lambda context should nest inside the enclosing function's context")
	}
}

func TestParseReservedConstructs(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ast.ExprKind
	}{
		{"match", "fn f(v: i32) -> i32 = match v { _ -> 0 }", ast.ExprMatch},
		{"spawn", "fn f() { spawn g() }", ast.ExprSpawn},
		{"await", "fn f() { await g() }", ast.ExprAwait},
		{"nullable member", "fn f(p: Point?) { p?.x }", ast.ExprNullableMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := parseOne(t, tt.src)
			var found *ast.Expr
			for _, s := range pkg.Decls[0].Body.Stmts {
				if s.Expr != nil {
					found = s.Expr
				}
			}
			if found == nil || found.Kind != tt.kind {
				t.Fatalf("expected %s expression", tt.kind)
			}
			if !found.Kind.NotYetImplemented() {
				t.Errorf("%s should be flagged reserved", tt.kind)
			}
		})
	}
}

func TestParseFFIBlock(t *testing.T) {
	src := `
ffi libm from "libm.so" {
	fn sqrt(x: f64) -> f64
	fn pow(base: f64, exp: f64) -> f64
}
fn main() -> u32 { return 0 }
`
	pkg := parseOne(t, src)
	d := pkg.Decls[0]
	if d.Kind != ast.DeclFFI || len(d.FFIMethods) != 2 {
		t.Fatalf("expected ffi decl with 2 methods, got %s / %d", d.Kind, len(d.FFIMethods))
	}
	if sym := pkg.Root.Lookup("libm"); sym == nil {
		t.Error("ffi block not registered as a symbol")
	}
}

func TestParseNamespace(t *testing.T) {
	src := `
namespace geometry {
	fn area(w: f32, h: f32) -> f32 = w * h
}
fn main() -> u32 { return 0 }
`
	pkg := parseOne(t, src)
	d := pkg.Decls[0]
	if d.Kind != ast.DeclNamespace || len(d.NamespaceBody) != 1 {
		t.Fatalf("expected namespace with 1 decl, got %s", d.Kind)
	}
	sym := pkg.Root.Lookup("geometry")
	if sym == nil || sym.Kind != scope.KindNamespace {
		t.Fatal("namespace symbol missing")
	}
	nsCtx := sym.Decl.(*scope.Context)
	if nsCtx.Lookup("area") == nil {
		t.Error("namespaced function not registered in namespace context")
	}
}

func TestParseYieldAndCast(t *testing.T) {
	pkg := parseOne(t, "fn gen() { yield (1) }\nfn f(x: i32) -> i64 = x as i64")
	yieldExpr := pkg.Decls[0].Body.Stmts[0].Expr
	if yieldExpr.Kind != ast.ExprYield || yieldExpr.Value == nil {
		t.Fatalf("expected yield with value, got %s", yieldExpr.Kind)
	}
	castExpr := pkg.Decls[1].Body.Stmts[0].Expr
	if castExpr.Kind != ast.ExprCast || castExpr.TypeRefNode.Name != "i64" {
		t.Fatalf("expected cast to i64, got %s", castExpr.Kind)
	}
}
