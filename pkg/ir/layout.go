package ir

import (
	"fmt"

	"github.com/typec-lang/tcc/pkg/infer"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

// Slot is one function-local's reserved stack position (spec §4.5 "Stack
// layout computation").
type Slot struct {
	Symbol *scope.Symbol
	Offset int
	Size   int
}

// Layout is the per-function byte layout pkg/regalloc and the downstream
// encoder consume: this (if a method), arguments, then locals, each densely
// packed in declaration/capture order.
type Layout struct {
	This          *Slot
	Args          []Slot
	Locals        []Slot
	ArgsByteSize  int
	LocalsByteSize int
}

// sizeOf returns a value's in-memory byte size for layout purposes: basic
// types use their natural width; every reference-kind value (array, class,
// interface, struct, variant, function pointer) is a single pointer-sized
// slot, since its backing storage is heap-allocated by s_alloc/c_alloc/
// a_alloc and only the handle lives on the stack.
func sizeOf(t *types.Type) int {
	if t == nil {
		return pointerSize
	}
	r := t.Reduce()
	switch r.Kind {
	case types.KindBasic:
		if r.Basic == types.BasicVoid {
			return 0
		}
		return r.Basic.ByteSize()
	case types.KindNullable:
		return sizeOf(r.Inner) + 1 // +1 null-tag byte (spec §4.5 "j_eq_null_<size>")
	default:
		return pointerSize
	}
}

const pointerSize = 8

// ComputeLayout implements spec §4.5's four-step algorithm: reserve `this`
// first for a method, then arguments in declared order, then every local
// collected by scope.Context.Codegen during inference (which already
// excludes function/lambda-kind symbols structurally, since LookupScope
// only calls addLocal for KindVariable/KindVariablePattern). A local with
// no type annotation at this point means the inference pass did not run —
// a compiler bug, reported as a codegen error rather than a guessed size.
func ComputeLayout(sink *source.Sink, inst *infer.FuncInstance) *Layout {
	layout := &Layout{}
	offset := 0

	if inst.IsMethod && inst.ThisType != nil {
		size := sizeOf(inst.ThisType)
		layout.This = &Slot{Offset: 0, Size: size}
		offset = size
	}

	for i, pt := range inst.ParamTypes {
		size := sizeOf(pt)
		var sym *scope.Symbol
		if inst.Decl != nil && i < len(inst.Decl.Params) {
			sym = inst.Context.Symbols[inst.Decl.Params[i].Name]
		}
		layout.Args = append(layout.Args, Slot{Symbol: sym, Offset: offset, Size: size})
		offset += size
	}
	layout.ArgsByteSize = offset

	localOffset := 0
	if inst.Context.Codegen != nil {
		for _, sym := range inst.Context.Codegen.Locals {
			t, ok := sym.Decl.(*types.Type)
			if !ok || t == nil {
				loc := source.Location{}
				if inst.Decl != nil {
					loc = inst.Decl.Span.Start
				}
				sink.Error(source.NewError(source.KindCodegen, loc, fmt.Sprintf("local %q has no type annotation at layout time; inference must run before lowering", sym.Name)))
				continue
			}
			size := sizeOf(t)
			layout.Locals = append(layout.Locals, Slot{Symbol: sym, Offset: localOffset, Size: size})
			localOffset += size
		}
	}
	layout.LocalsByteSize = localOffset

	return layout
}
