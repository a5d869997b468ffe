package infer

import (
	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

// InferBlock infers every statement of block in order under ctx (spec §5
// "IR emission order ... matches a depth-first, left-to-right AST walk";
// inference walks in the same order so later lowering sees consistent
// Info entries).
func (e *Engine) InferBlock(ctx *scope.Context, block *ast.Block, sig string) {
	if block == nil {
		return
	}
	for _, stmt := range block.Stmts {
		e.InferStmt(ctx, stmt, sig)
	}
}

// childBlockContext opens a fresh nested scope for a loop/bare block body
// (spec §3.1 "Contexts form a tree that mirrors lexical nesting"); the
// parser only opens Contexts for function-like/namespace/let-in owners, so
// inference opens the plain block-level ones itself: a new Context on every
// call, so a block inferred again gets a fresh one.
func (e *Engine) childBlockContext(parent *scope.Context, owner scope.Owner) *scope.Context {
	return e.Arena.NewContext(parent, owner)
}

func (e *Engine) InferStmt(ctx *scope.Context, stmt *ast.Stmt, sig string) {
	if stmt == nil {
		return
	}
	switch stmt.Kind {
	case ast.StmtLet:
		e.inferLet(ctx, stmt, sig)
	case ast.StmtExpr:
		e.InferExpr(ctx, stmt.Expr, nil, sig)
	case ast.StmtReturn:
		if e.collectingFn != nil {
			e.collectingFn.Returns = append(e.collectingFn.Returns, stmt)
		}
		var hint *types.Type
		if e.collectingFn != nil {
			hint = e.collectingFn.ResultType
		}
		if stmt.Expr != nil {
			e.InferExpr(ctx, stmt.Expr, hint, sig)
		}
	case ast.StmtWhile:
		e.InferExpr(ctx, stmt.Cond, types.NewBasic(types.BasicBool), sig)
		loopCtx := e.childBlockContext(ctx, scope.Owner{Kind: scope.OwnerNone})
		loopCtx.Flags.WithinLoop = true
		loopCtx.LoopContext = loopCtx
		e.InferBlock(loopCtx, stmt.Body, sig)
	case ast.StmtFor:
		forCtx := e.childBlockContext(ctx, scope.Owner{Kind: scope.OwnerNone})
		forCtx.Flags.WithinLoop = true
		forCtx.LoopContext = forCtx
		e.InferStmt(forCtx, stmt.Init, sig)
		if stmt.Cond != nil {
			e.InferExpr(forCtx, stmt.Cond, types.NewBasic(types.BasicBool), sig)
		}
		e.InferStmt(forCtx, stmt.Post, sig)
		e.InferBlock(forCtx, stmt.Body, sig)
	case ast.StmtForeach:
		iterType := e.InferExpr(ctx, stmt.Expr, nil, sig)
		loopCtx := e.childBlockContext(ctx, scope.Owner{Kind: scope.OwnerNone})
		loopCtx.Flags.WithinLoop = true
		loopCtx.LoopContext = loopCtx
		elemType := elementTypeOf(iterType)
		loopCtx.AddSymbol(e.Sink, stmt.Span.Start, stmt.LoopVar, &scope.Symbol{Kind: scope.KindVariable, Decl: elemType})
		e.InferBlock(loopCtx, stmt.Body, sig)
	case ast.StmtBreak:
		if scope.FindParentLoop(ctx) == nil {
			e.Sink.Error(source.NewError(source.KindSemantic, stmt.Span.Start, "break outside a loop"))
		}
	case ast.StmtContinue:
		if scope.FindParentLoop(ctx) == nil {
			e.Sink.Error(source.NewError(source.KindSemantic, stmt.Span.Start, "continue outside a loop"))
		}
	case ast.StmtBlock:
		blockCtx := e.childBlockContext(ctx, scope.Owner{Kind: scope.OwnerNone})
		e.InferBlock(blockCtx, stmt.Body, sig)
	case ast.StmtNamespace:
		nsCtx := e.childBlockContext(ctx, scope.Owner{Kind: scope.OwnerNamespace})
		e.InferBlock(nsCtx, stmt.Body, sig)
	}
}

// elementTypeOf returns the element type iterated by a foreach over t: the
// array element type when t is an array. Any other type, including a class
// or interface implementing Iterator, degrades to void rather than
// aborting inference (a best-effort fallback; the real diagnostic is
// raised by CanAssign at the loop-var's use sites).
func elementTypeOf(t *types.Type) *types.Type {
	if t == nil {
		return types.NewBasic(types.BasicVoid)
	}
	if arr, ok := t.To(types.KindArray); ok {
		return arr.Inner
	}
	return types.NewBasic(types.BasicVoid)
}

func (e *Engine) inferLet(ctx *scope.Context, stmt *ast.Stmt, sig string) {
	var hint *types.Type
	if stmt.TypeAnnotation != nil {
		hint = e.ConvertTypeRef(ctx, stmt.TypeAnnotation).Resolve(e.Sink, stmt.Span.Start)
	}
	inferred := e.InferExpr(ctx, stmt.Expr, hint, sig)
	declType := inferred
	if hint != nil {
		declType = hint
	}
	if stmt.Pattern == nil {
		return
	}
	kind := scope.KindVariable
	if stmt.Pattern.Kind == ast.PatternIdentifier && stmt.Pattern.Name != "_" {
		ctx.AddSymbol(e.Sink, stmt.Span.Start, stmt.Pattern.Name, &scope.Symbol{Kind: kind, Decl: declType})
	}
}
