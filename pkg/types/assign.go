package types

import (
	"fmt"

	"github.com/typec-lang/tcc/pkg/source"
)

// Result is the structured outcome of an assignability or castability
// check (spec §4.3). Lowering consults FieldSwap/MethodOrder/
// RequiresSafeCast/RequiresTagCheck to decide what extra IR a coercion
// needs beyond a plain move.
type Result struct {
	Success bool
	Message string

	// FieldSwap[i] is the source struct field index supplying destination
	// field i, when a structural struct assignment permits field
	// re-ordering (spec §4.3 "Structural struct match", testable property 8).
	FieldSwap []int

	// MethodOrder[i] is the class/source-interface method index
	// implementing destination interface method i (spec §4.3
	// "Class -> interface", "Interface -> interface").
	MethodOrder []int

	RequiresSafeCast bool // interface->interface alignment failed; needs a runtime-checked cast
	RequiresTagCheck bool // variant -> variant constructor needs a runtime tag compare

	CastSteps []CastStep // basic numeric cast: ordered primitive cast ops
}

func fail(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

func ok() Result { return Result{Success: true} }

// CanAssign reports whether a value of type from may be assigned (without
// an explicit cast) to a location of type to.
func CanAssign(sink *source.Sink, loc source.Location, from, to *Type) Result {
	if from == nil || to == nil || from.IsError() || to.IsError() {
		return fail("cannot assign: unresolved type")
	}

	// Nullable absorbs its own underlying, and the null literal.
	if to.Kind == KindNullable {
		if from.Kind == KindBasic && from.Basic == BasicNull {
			return ok()
		}
		if from.Kind == KindNullable {
			return CanAssign(sink, loc, from.Inner, to.Inner)
		}
		return CanAssign(sink, loc, from, to.Inner)
	}
	if from.Kind == KindBasic && from.Basic == BasicNull {
		return fail("null is only assignable to a nullable type")
	}

	fr, tr := from.Reduce(), to.Reduce()

	if fr.Kind == KindBasic && tr.Kind == KindBasic {
		if fr.Basic == tr.Basic {
			return ok()
		}
		return fail("cannot assign %s to %s without a cast", fr.Basic, tr.Basic)
	}

	if fr.Kind == KindStruct && tr.Kind == KindStruct {
		return assignStruct(fr, tr)
	}

	if fr.Kind == KindClass && tr.Kind == KindInterface {
		return assignClassToInterface(fr, tr)
	}

	if fr.Kind == KindInterface && tr.Kind == KindInterface {
		return assignInterfaceToInterface(fr, tr)
	}

	if fr.Kind == KindArray && tr.Kind == KindArray {
		elem := CanAssign(sink, loc, fr.Inner, tr.Inner)
		if !elem.Success {
			return fail("array element type mismatch: %s", elem.Message)
		}
		return ok()
	}

	if fr.Kind == KindFunction && tr.Kind == KindFunction {
		if len(fr.Params) != len(tr.Params) {
			return fail("function type arity mismatch")
		}
		for i := range fr.Params {
			if !sameType(fr.Params[i], tr.Params[i]) {
				return fail("function parameter %d type mismatch", i)
			}
		}
		if !sameType(fr.Result, tr.Result) {
			return fail("function return type mismatch")
		}
		return ok()
	}

	if fr == tr {
		return ok()
	}
	if fr.Kind == tr.Kind && fr.Name != "" && fr.Name == tr.Name {
		return ok()
	}

	return fail("cannot assign %s to %s", fr.Signature(), tr.Signature())
}

func sameType(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Signature() == b.Signature()
}

// assignStruct permits field re-ordering: the destination's named fields
// must all be present in the source with assignable types, in any order.
// FieldSwap[i] names which source index supplies destination field i, so
// lowering can emit the offset-swap prologue (spec testable property 8).
func assignStruct(from, to *Type) Result {
	if len(from.Fields) != len(to.Fields) {
		return fail("struct field count mismatch: %d vs %d", len(from.Fields), len(to.Fields))
	}
	srcIndex := make(map[string]int, len(from.Fields))
	for i, f := range from.Fields {
		srcIndex[f.Name] = i
	}
	swap := make([]int, len(to.Fields))
	for i, tf := range to.Fields {
		si, found := srcIndex[tf.Name]
		if !found {
			return fail("destination field %q not present in source struct", tf.Name)
		}
		if !sameType(from.Fields[si].Type, tf.Type) {
			return fail("field %q type mismatch", tf.Name)
		}
		swap[i] = si
	}
	return Result{Success: true, FieldSwap: swap}
}

// assignClassToInterface requires the class to provide every interface
// method with an identical signature (spec invariant 4); MethodOrder[i] is
// the class's ClassMethod.IndexInClass implementing interface method i.
func assignClassToInterface(class, iface *Type) Result {
	order := make([]int, len(iface.IMethods))
	for i, im := range iface.IMethods {
		idx := findClassMethod(class, im)
		if idx < 0 {
			return fail("class %s does not implement %s.%s", class.Name, iface.Name, im.Name)
		}
		order[i] = idx
	}
	return Result{Success: true, MethodOrder: order}
}

func findClassMethod(class *Type, im *InterfaceMethod) int {
	for _, cm := range class.Methods {
		if cm.Name != im.Name || cm.Static != im.Static || len(cm.Params) != len(im.Params) {
			continue
		}
		matched := true
		for i := range cm.Params {
			if !sameType(cm.Params[i].Type, im.Params[i].Type) {
				matched = false
				break
			}
		}
		if matched && sameType(cm.Result, im.Result) {
			return cm.IndexInClass
		}
	}
	return -1
}

// assignInterfaceToInterface checks whether the source interface's method
// set covers the destination's. If the methods are present but in a
// different order, MethodOrder records the re-mapping; if the destination
// has methods the source lacks, the assignment must go through a safe cast
// instead (RequiresSafeCast).
func assignInterfaceToInterface(from, to *Type) Result {
	order := make([]int, len(to.IMethods))
	aligned := true
	for i, tm := range to.IMethods {
		idx := -1
		for j, fm := range from.IMethods {
			if fm.Name == tm.Name && fm.Static == tm.Static && sameType(fm.Result, tm.Result) && sameParamTypes(fm.Params, tm.Params) {
				idx = j
				break
			}
		}
		if idx < 0 {
			return Result{Success: false, RequiresSafeCast: true, Message: fmt.Sprintf("interface %s does not provide %s.%s; use a safe cast", from.Name, to.Name, tm.Name)}
		}
		if idx != i {
			aligned = false
		}
		order[i] = idx
	}
	if aligned {
		return ok()
	}
	return Result{Success: true, MethodOrder: order}
}

func sameParamTypes(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameType(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}
