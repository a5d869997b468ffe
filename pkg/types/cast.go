package types

import "github.com/typec-lang/tcc/pkg/source"

// CastOp names a single primitive coercion instruction that IR lowering
// emits for an explicit cast (spec §4.3 "cast", §5 "ImplicitCast").
type CastOp string

const (
	CastUpcastU  CastOp = "upcast_u" // unsigned integer widen, zero-extend
	CastUpcastI  CastOp = "upcast_i" // signed integer widen, sign-extend
	CastDcastU   CastOp = "dcast_u"  // unsigned integer narrow, truncate
	CastDcastI   CastOp = "dcast_i"  // signed integer narrow, truncate
	CastIntToF   CastOp = "i2f"      // integer to float
	CastFToInt   CastOp = "f2i"      // float to integer, truncating
	CastFWiden   CastOp = "f2f_wide" // f32 -> f64
	CastFNarrow  CastOp = "f2f_narrow"
	CastSafeIntf CastOp = "safe_cast_interface" // runtime method-set check
	CastTagCheck CastOp = "tag_check"           // variant -> constructor runtime tag compare
	CastIdentity CastOp = "identity"            // same representation, no-op at runtime
)

// CastStep is one instruction in the ordered sequence lowering must emit to
// convert a from-typed value into a to-typed value.
type CastStep struct {
	Op   CastOp
	From BasicKind
	To   BasicKind
}

// CanCast reports whether an explicit cast from from to to is permitted,
// and if so what CastSteps realize it. Every assignable pair is also
// castable: with a single CastIdentity step, or, when CanAssign reports a
// FieldSwap or MethodOrder, with CanAssign's Result as is and no CastSteps.
// CanCast additionally allows the lossy/narrowing/runtime-checked
// conversions CanAssign rejects.
func CanCast(sink *source.Sink, loc source.Location, from, to *Type) Result {
	if from == nil || to == nil || from.IsError() || to.IsError() {
		return fail("cannot cast: unresolved type")
	}

	if res := CanAssign(sink, loc, from, to); res.Success {
		if len(res.FieldSwap) == 0 && len(res.MethodOrder) == 0 {
			res.CastSteps = []CastStep{{Op: CastIdentity}}
		}
		return res
	}

	fr, tr := from.Reduce(), to.Reduce()

	if fr.Kind == KindBasic && tr.Kind == KindBasic {
		if steps, ok := numericCastSteps(fr.Basic, tr.Basic); ok {
			return Result{Success: true, CastSteps: steps}
		}
		return fail("no numeric cast from %s to %s", fr.Basic, tr.Basic)
	}

	if fr.Kind == KindVariant && tr.Kind == KindVariantConstructor {
		if tr.ParentVariant != fr {
			return fail("%s is not a constructor of variant %s", tr.CtorName, fr.Name)
		}
		return Result{Success: true, RequiresTagCheck: true, CastSteps: []CastStep{{Op: CastTagCheck}}}
	}

	if fr.Kind == KindClass && tr.Kind == KindInterface {
		if res := assignClassToInterface(fr, tr); res.Success {
			res.CastSteps = []CastStep{{Op: CastIdentity}}
			return res
		}
		return fail("class %s does not implement interface %s", fr.Name, tr.Name)
	}

	if fr.Kind == KindInterface && (tr.Kind == KindInterface || tr.Kind == KindClass) {
		return Result{Success: true, RequiresSafeCast: true, CastSteps: []CastStep{{Op: CastSafeIntf}}}
	}

	return fail("cannot cast %s to %s", fr.Signature(), tr.Signature())
}

// numericCastSteps returns the deterministic cast-op sequence between two
// basic numeric kinds (spec §4.3 numeric cast table). Bool/char/void/null
// pairs are not covered here; CanAssign's exact-match path already handles
// identical basic kinds before this is reached.
func numericCastSteps(from, to BasicKind) ([]CastStep, bool) {
	if from == to {
		return []CastStep{{Op: CastIdentity, From: from, To: to}}, true
	}

	fromFloat, toFloat := from.IsFloat(), to.IsFloat()
	fromInt, toInt := from.IsInteger(), to.IsInteger()

	switch {
	case fromInt && toInt:
		if to.ByteSize() > from.ByteSize() {
			op := CastUpcastU
			if !from.IsUnsigned() {
				op = CastUpcastI
			}
			return []CastStep{{Op: op, From: from, To: to}}, true
		}
		op := CastDcastU
		if !from.IsUnsigned() {
			op = CastDcastI
		}
		return []CastStep{{Op: op, From: from, To: to}}, true

	case fromInt && toFloat:
		return []CastStep{{Op: CastIntToF, From: from, To: to}}, true

	case fromFloat && toInt:
		return []CastStep{{Op: CastFToInt, From: from, To: to}}, true

	case fromFloat && toFloat:
		op := CastFNarrow
		if to.ByteSize() > from.ByteSize() {
			op = CastFWiden
		}
		return []CastStep{{Op: op, From: from, To: to}}, true
	}

	return nil, false
}
