// Package infer implements bidirectional type inference (spec §4.4,
// Component F): per-expression inferredType/hintType, function-header
// memoization, the inference-cache stack-set that breaks self-recursion
// (spec invariant 7), generic monomorphization driven by
// types.GetGenericParametersRecursive/types.Instantiate, yield/return
// separation (spec invariant 8), and operator-overload resolution.
//
// Per spec §9's redesign note ("keep a side table ExprId -> InferenceInfo
// ... do not mutate the AST after construction"), results are never
// written onto ast.Expr; they live in a Table keyed by (ExprID, instance).
// The instance component is the empty string for an expression inferred in
// a non-generic context and the monomorphization signature otherwise,
// since a generic function's body AST is inferred once per distinct
// type-argument list but is never cloned node-by-node (spec invariant 5).
package infer

import (
	"sync"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/types"
)

// OverloadMatch records that an operator expression was resolved to a
// class method instead of a primitive operation (spec §4.4 "Operator
// resolution"); IR lowering rewrites the expression into a method call
// using this.
type OverloadMatch struct {
	MethodName string
	Method     *types.ClassMethod
	ClassType  *types.Type
}

// Info is the inference result for one expression node.
type Info struct {
	InferredType *types.Type
	HintType     *types.Type

	// Cast is set when HintType differs from InferredType and an implicit
	// cast is legal (spec §4.4 "lowering ... will insert a CastExpression
	// when visiting"); lowering consults it instead of re-deriving castability.
	Cast *types.Result

	Overload *OverloadMatch

	// Callee is the concrete FuncInstance a call expression resolved to
	// (nil for indirect calls through a function-typed value); lowering
	// emits `call dst <Callee.UID>` from it (spec §4.5 "Call").
	Callee *FuncInstance
}

type tableKey struct {
	Expr     ast.ExprID
	Instance string
}

// Table is the ExprID -> Info side table for one compiler instance. It is
// owned by an Engine, not a package global (spec §5, §9).
type Table struct {
	mu      sync.Mutex
	entries map[tableKey]*Info
}

func NewTable() *Table {
	return &Table{entries: make(map[tableKey]*Info)}
}

func (t *Table) Set(id ast.ExprID, instance string, info *Info) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[tableKey{id, instance}] = info
}

// Merge folds the non-nil fields of info into the existing entry for
// (id, instance), creating it if absent. Inference records overload and
// callee resolutions mid-visit and the final type/hint afterwards; Merge
// keeps the earlier fields from being clobbered by the later write.
func (t *Table) Merge(id ast.ExprID, instance string, info *Info) *Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := tableKey{id, instance}
	existing, ok := t.entries[key]
	if !ok {
		t.entries[key] = info
		return info
	}
	if info.InferredType != nil {
		existing.InferredType = info.InferredType
	}
	if info.HintType != nil {
		existing.HintType = info.HintType
	}
	if info.Cast != nil {
		existing.Cast = info.Cast
	}
	if info.Overload != nil {
		existing.Overload = info.Overload
	}
	if info.Callee != nil {
		existing.Callee = info.Callee
	}
	return existing
}

func (t *Table) Get(id ast.ExprID, instance string) (*Info, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.entries[tableKey{id, instance}]
	return info, ok
}
