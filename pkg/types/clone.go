package types

// Clone performs a structural deep copy of t, substituting every
// GenericParam-kind type whose name appears in subst with the concrete
// type supplied there (spec §4.3 "clone(genericsMap)"). Cyclic type graphs
// (a class referencing itself, directly or through a field) are handled by
// memoizing already-cloned pointers within one Clone call.
func (t *Type) Clone(subst map[string]*Type) *Type {
	return t.cloneWith(subst, make(map[*Type]*Type))
}

func (t *Type) cloneWith(subst map[string]*Type, seen map[*Type]*Type) *Type {
	if t == nil {
		return nil
	}
	if t.Kind == KindGenericParam {
		if repl, ok := subst[t.ParamName]; ok {
			return repl
		}
		return t
	}
	if c, ok := seen[t]; ok {
		return c
	}

	clone := new(Type)
	*clone = *t
	seen[t] = clone

	clone.Inner = t.Inner.cloneWith(subst, seen)
	clone.Result = t.Result.cloneWith(subst, seen)
	clone.Constraint = t.Constraint.cloneWith(subst, seen)
	clone.Target = t.Target.cloneWith(subst, seen)
	clone.Contract = t.Contract.cloneWith(subst, seen)
	clone.ParentVariant = t.ParentVariant.cloneWith(subst, seen)
	clone.EnumAsKind = t.EnumAsKind.cloneWith(subst, seen)

	clone.Fields = cloneFieldSlice(t.Fields, subst, seen)
	clone.Params = cloneTypeSlice(t.Params, subst, seen)
	clone.Implements = cloneTypeSlice(t.Implements, subst, seen)
	clone.Options = cloneTypeSlice(t.Options, subst, seen)
	clone.Methods = cloneMethodSlice(t.Methods, subst, seen)
	clone.IMethods = cloneInterfaceMethodSlice(t.IMethods, subst, seen)
	clone.ImplMethods = cloneImplMethodSlice(t.ImplMethods, subst, seen)
	clone.Constructors = cloneConstructorSlice(t.Constructors, subst, seen)

	// The shallow copy above keeps t's ConcreteGenerics map, so a clone
	// shares its generic origin's monomorphization cache.
	return clone
}

func cloneFieldSlice(fs []Field, subst map[string]*Type, seen map[*Type]*Type) []Field {
	if fs == nil {
		return nil
	}
	out := make([]Field, len(fs))
	for i, f := range fs {
		out[i] = Field{Name: f.Name, Type: f.Type.cloneWith(subst, seen), Offset: f.Offset}
	}
	return out
}

func cloneTypeSlice(ts []*Type, subst map[string]*Type, seen map[*Type]*Type) []*Type {
	if ts == nil {
		return nil
	}
	out := make([]*Type, len(ts))
	for i, t := range ts {
		out[i] = t.cloneWith(subst, seen)
	}
	return out
}

func cloneMethodSlice(ms []*ClassMethod, subst map[string]*Type, seen map[*Type]*Type) []*ClassMethod {
	if ms == nil {
		return nil
	}
	out := make([]*ClassMethod, len(ms))
	for i, m := range ms {
		clone := *m
		clone.Params = cloneFieldSlice(m.Params, subst, seen)
		clone.Result = m.Result.cloneWith(subst, seen)
		out[i] = &clone
	}
	return out
}

func cloneInterfaceMethodSlice(ms []*InterfaceMethod, subst map[string]*Type, seen map[*Type]*Type) []*InterfaceMethod {
	if ms == nil {
		return nil
	}
	out := make([]*InterfaceMethod, len(ms))
	for i, m := range ms {
		clone := *m
		clone.Params = cloneFieldSlice(m.Params, subst, seen)
		clone.Result = m.Result.cloneWith(subst, seen)
		out[i] = &clone
	}
	return out
}

func cloneImplMethodSlice(ms []*ImplMethod, subst map[string]*Type, seen map[*Type]*Type) []*ImplMethod {
	if ms == nil {
		return nil
	}
	out := make([]*ImplMethod, len(ms))
	for i, m := range ms {
		clone := *m
		clone.Params = cloneFieldSlice(m.Params, subst, seen)
		clone.Result = m.Result.cloneWith(subst, seen)
		out[i] = &clone
	}
	return out
}

func cloneConstructorSlice(cs []*VariantConstructor, subst map[string]*Type, seen map[*Type]*Type) []*VariantConstructor {
	if cs == nil {
		return nil
	}
	out := make([]*VariantConstructor, len(cs))
	for i, c := range cs {
		clone := *c
		clone.Params = cloneFieldSlice(c.Params, subst, seen)
		out[i] = &clone
	}
	return out
}

// Instantiate returns the concrete instance of a generic Type (class,
// interface, or variant) for the given substitution, computing it at most
// once per distinct ordered type-argument list and caching the result on
// the generic origin so every caller sees the same instance (spec
// invariant 5, testable property 4).
func (t *Type) Instantiate(subst map[string]*Type) *Type {
	if len(t.Generics) == 0 {
		return t
	}
	args := make([]*Type, len(t.Generics))
	for i, g := range t.Generics {
		args[i] = subst[g.Name]
	}
	sig := argsSignature(args)

	if t.ConcreteGenerics == nil {
		t.ConcreteGenerics = make(map[string]*Type)
	}
	if existing, ok := t.ConcreteGenerics[sig]; ok {
		return existing
	}

	clone := t.Clone(subst)
	clone.Generics = nil
	t.ConcreteGenerics[sig] = clone
	return clone
}
