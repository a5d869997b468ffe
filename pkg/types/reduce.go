package types

// Reduce walks through ReferenceType and NullableType wrappers (after
// resolution) and returns the first non-wrapper type reached. Pattern
// matching and Is/To both build on this (spec §4.3 "is/to").
func (t *Type) Reduce() *Type {
	cur := t
	for cur != nil {
		switch cur.Kind {
		case KindReference:
			if cur.Resolved == nil {
				return cur
			}
			cur = cur.Resolved
		case KindNullable:
			cur = cur.Inner
		default:
			return cur
		}
	}
	return cur
}

// Is reports whether t reduces to the given Kind.
func (t *Type) Is(k Kind) bool {
	r := t.Reduce()
	return r != nil && r.Kind == k
}

// To reduces t and, if it matches Kind, returns the reduced value and true.
func (t *Type) To(k Kind) (*Type, bool) {
	r := t.Reduce()
	if r != nil && r.Kind == k {
		return r, true
	}
	return nil, false
}

// IsNullable reports whether t is a NullableType (without reducing through
// it) — used where a nullable wrapper itself is the thing being inspected,
// e.g. nullable-read-outside-nullish-context checks.
func (t *Type) IsNullable() bool { return t != nil && t.Kind == KindNullable }

// AllowedNullable reports whether wrapping t in NullableType is legal. void
// and null themselves cannot be nullable-wrapped, nor can an
// already-nullable type be nullable-wrapped again (no T??).
func (t *Type) AllowedNullable() bool {
	cur := t
	for cur != nil && cur.Kind == KindReference && cur.Resolved != nil {
		cur = cur.Resolved
	}
	if cur == nil || cur.Kind == KindNullable {
		return false
	}
	r := cur.Reduce()
	if r == nil {
		return false
	}
	if r.Kind == KindBasic && (r.Basic == BasicVoid || r.Basic == BasicNull) {
		return false
	}
	return true
}
