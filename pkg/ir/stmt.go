package ir

import (
	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/types"
)

func (f *fnLowerer) lowerBlock(b *ast.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		f.lowerStmt(s)
	}
}

func (f *fnLowerer) lowerStmt(s *ast.Stmt) {
	if s == nil {
		return
	}
	switch s.Kind {
	case ast.StmtLet:
		f.lowerLet(s)
	case ast.StmtExpr:
		f.visit(s.Expr)
	case ast.StmtReturn:
		f.lowerReturn(s)
	case ast.StmtWhile:
		f.lowerWhile(s)
	case ast.StmtFor:
		f.lowerFor(s)
	case ast.StmtForeach:
		f.lowerForeach(s)
	case ast.StmtBreak:
		if len(f.loops) == 0 {
			return // inference already reported break-outside-loop
		}
		f.emit(OpJump, s.Span.Start, f.loops[len(f.loops)-1].breakLabel)
	case ast.StmtContinue:
		if len(f.loops) == 0 {
			return
		}
		f.emit(OpJump, s.Span.Start, f.loops[len(f.loops)-1].continueLabel)
	case ast.StmtBlock, ast.StmtNamespace:
		f.lowerBlock(s.Body)
	}
}

func (f *fnLowerer) lowerLet(s *ast.Stmt) {
	val := f.visit(s.Expr)
	if s.Pattern == nil || s.Pattern.Kind == ast.PatternWildcard || s.Pattern.Name == "_" {
		return
	}
	sym, class := f.resolveSymbol(s.Pattern.Name)
	if sym == nil {
		return
	}
	t := f.exprType(s.Expr)
	if info := f.info(s.Expr); info != nil && info.HintType != nil {
		t = info.HintType
	}
	if class == classGlobal {
		f.emit(suffixed(OpGlobal, t), s.Span.Start, sym.UID, "reg", val)
		return
	}
	f.emit(suffixed(OpTmp, t), s.Span.Start, sym.UID, "reg", val)
}

func (f *fnLowerer) lowerReturn(s *ast.Stmt) {
	if s.Expr == nil {
		f.emit(OpRetVoid, s.Span.Start)
		return
	}
	reg := f.visit(s.Expr)
	t := f.inst.ResultType
	if t == nil {
		t = f.exprType(s.Expr)
	}
	if r, ok := t.To(types.KindBasic); ok && r.Basic == types.BasicVoid {
		f.emit(OpRetVoid, s.Span.Start)
		return
	}
	f.emit(suffixed(OpRet, t), s.Span.Start, reg)
}

func (f *fnLowerer) lowerWhile(s *ast.Stmt) {
	start := f.freshLabel("while")
	end := f.freshLabel("endwhile")
	f.emit(OpLabel, s.Span.Start, start)
	f.condJump(s.Cond, end)

	f.loops = append(f.loops, loopFrame{continueLabel: start, breakLabel: end})
	f.lowerBlock(s.Body)
	f.loops = f.loops[:len(f.loops)-1]

	f.emit(OpJump, s.Span.Start, start)
	f.emit(OpLabel, s.Span.Start, end)
}

func (f *fnLowerer) lowerFor(s *ast.Stmt) {
	cond := f.freshLabel("for")
	post := f.freshLabel("forpost")
	end := f.freshLabel("endfor")

	f.lowerStmt(s.Init)
	f.emit(OpLabel, s.Span.Start, cond)
	if s.Cond != nil {
		f.condJump(s.Cond, end)
	}

	f.loops = append(f.loops, loopFrame{continueLabel: post, breakLabel: end})
	f.lowerBlock(s.Body)
	f.loops = f.loops[:len(f.loops)-1]

	f.emit(OpLabel, s.Span.Start, post)
	f.lowerStmt(s.Post)
	f.emit(OpJump, s.Span.Start, cond)
	f.emit(OpLabel, s.Span.Start, end)
}

// lowerForeach iterates an array by index: length once up front, then a
// j_cmp-guarded load/store/body/increment loop (spec §4.5 "foreach and
// similar constructs each lower to the instruction families above").
func (f *fnLowerer) lowerForeach(s *ast.Stmt) {
	loc := s.Span.Start
	arr := f.visit(s.Expr)
	iterType := f.exprType(s.Expr)
	elemType := types.NewBasic(types.BasicVoid)
	if a, ok := iterType.To(types.KindArray); ok {
		elemType = a.Inner
	}

	length := f.freshReg()
	f.emit(OpArrayLen, loc, length, arr)
	idx := f.freshReg()
	f.emit(Op("const_u64"), loc, idx, int64(0))

	cond := f.freshLabel("foreach")
	post := f.freshLabel("foreachpost")
	end := f.freshLabel("endforeach")

	f.emit(OpLabel, loc, cond)
	f.emit(Op("j_cmp_u64"), loc, idx, length, int(CmpGe), end)

	elem := f.freshReg()
	f.emit(suffixed(OpArrayLoadF, elemType), loc, elem, idx, arr)
	// An unused loop variable never reached LookupScope, so it owns no
	// stack slot; the store is simply skipped.
	if sym, _ := f.resolveSymbol(s.LoopVar); sym != nil {
		f.emit(suffixed(OpTmp, elemType), loc, sym.UID, "reg", elem)
	}

	f.loops = append(f.loops, loopFrame{continueLabel: post, breakLabel: end})
	f.lowerBlock(s.Body)
	f.loops = f.loops[:len(f.loops)-1]

	f.emit(OpLabel, loc, post)
	one := f.freshReg()
	f.emit(Op("const_u64"), loc, one, int64(1))
	f.emit(Op("add_u64"), loc, idx, idx, one)
	f.emit(OpJump, loc, cond)
	f.emit(OpLabel, loc, end)
}
