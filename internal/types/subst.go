package types

// Bindings maps generic parameters to the concrete types they stand for.
type Bindings map[*nominal]*Type

// Bind records t as the value of generic parameter g.
func (bs Bindings) Bind(g, t *Type) { bs[g.nominal] = t }

// Lookup returns the binding of generic parameter g.
func (bs Bindings) Lookup(g *Type) (*Type, bool) {
	t, ok := bs[g.nominal]
	return t, ok
}

// Args returns the bindings of params in order, defaulting unbound ones to
// var.
func (bs Bindings) Args(params []*Type) []*Type {
	args := make([]*Type, len(params))
	for i, p := range params {
		if t, ok := bs[p.nominal]; ok {
			args[i] = t
		} else {
			args[i] = Any
		}
	}
	return args
}

// Replace substitutes bound generic parameters throughout t. Generic struct
// instances whose type arguments change are re-instantiated.
func Replace(t *Type, bs Bindings) (*Type, error) {
	if len(bs) == 0 || !t.IsGeneric() {
		return t, nil
	}
	switch t.kind {
	case KindGeneric:
		if r, ok := bs[t.nominal]; ok {
			return r, nil
		}
		return t, nil
	case KindArray, KindMemory, KindOptional:
		c, err := Replace(t.content, bs)
		if err != nil {
			return nil, err
		}
		cp := *t
		cp.content = c
		return &cp, nil
	case KindProc:
		in, err := ReplaceAll(t.in, bs)
		if err != nil {
			return nil, err
		}
		out, err := ReplaceAll(t.out, bs)
		if err != nil {
			return nil, err
		}
		var explicit []*Type
		for _, g := range t.explicit {
			if _, bound := bs[g.nominal]; !bound {
				explicit = append(explicit, g)
			}
		}
		return &Type{kind: KindProc, mut: t.mut, explicit: explicit, in: in, out: out}, nil
	case KindTuple:
		cp := *t
		cp.fields = make([]Field, len(t.fields))
		for i, f := range t.fields {
			ft, err := Replace(f.Type, bs)
			if err != nil {
				return nil, err
			}
			f.Type = ft
			cp.fields[i] = f
		}
		return &cp, nil
	case KindUnion:
		elems, err := ReplaceAll(t.elems, bs)
		if err != nil {
			return nil, err
		}
		return Union(elems...).WithMutability(t.mut), nil
	case KindStruct:
		if t.nominal.instantiate == nil {
			return t, nil
		}
		args, err := ReplaceAll(t.nominal.args, bs)
		if err != nil {
			return nil, err
		}
		inst, err := t.nominal.instantiate(args)
		if err != nil {
			return nil, err
		}
		return inst.WithMutability(t.mut), nil
	}
	return t, nil
}

// ReplaceAll applies Replace to each type of ts.
func ReplaceAll(ts []*Type, bs Bindings) ([]*Type, error) {
	out := make([]*Type, len(ts))
	for i, t := range ts {
		r, err := Replace(t, bs)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
