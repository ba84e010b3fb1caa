package builder

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Alia5/hdrbind/internal/codegen/callbacks"
	"github.com/Alia5/hdrbind/internal/codegen/cheader"
	"github.com/Alia5/hdrbind/internal/codegen/meta"
)

// node is one declaration that can become an item.
type node struct {
	orig string
	pos  cheader.Pos
	// Exactly one of enum, rec and target is set.
	enum   *cheader.Enum
	rec    *cheader.Record
	target *cheader.TypeRef
	// synthetic nodes stand in for types the header never defines.
	synthetic bool
	selected  bool

	name    string
	named   bool
	lowered *lowered
}

type lowered struct {
	fields []meta.Field
	size   int64
	align  int64
}

type graph struct {
	nodes    []*node
	tags     map[string]*node
	typedefs map[string]*node
	anon     []*cheader.Enum
	cb       callbacks.ParseCallbacks
	logger   *slog.Logger
	// taken maps emitted names to the original they came from.
	taken map[string]string
	// lowering guards against records containing themselves by value.
	lowering map[*node]bool
}

func newGraph(h *cheader.Header, cb callbacks.ParseCallbacks, logger *slog.Logger) *graph {
	g := &graph{
		tags:     make(map[string]*node),
		typedefs: make(map[string]*node),
		cb:       cb,
		logger:   logger,
		taken:    make(map[string]string),
		lowering: make(map[*node]bool),
	}
	for _, d := range h.Decls {
		switch d := d.(type) {
		case *cheader.Enum:
			name, ok := d.Name()
			if !ok {
				g.anon = append(g.anon, d)
				continue
			}
			n := &node{orig: name, pos: d.Pos, enum: d}
			g.add(n)
			if d.Tag != "" {
				g.tags["enum "+d.Tag] = n
			}
			g.bindTypedef(d.TypedefName, n, cheader.TypeRef{Kind: cheader.EnumRef, Name: d.Tag})
		case *cheader.Record:
			name, ok := d.Name()
			if !ok {
				continue
			}
			n := &node{orig: name, pos: d.Pos, rec: d}
			if d.Tag != "" {
				key := d.Kind.String() + " " + d.Tag
				if _, dup := g.tags[key]; dup {
					g.logger.Warn("Ignoring redefinition", "type", key, "pos", d.Pos)
					continue
				}
				g.tags[key] = n
			}
			g.add(n)
			ref := cheader.TypeRef{Kind: cheader.StructRef, Name: d.Tag}
			if d.Kind == cheader.UnionKind {
				ref.Kind = cheader.UnionRef
			}
			g.bindTypedef(d.TypedefName, n, ref)
		case *cheader.Typedef:
			if _, dup := g.typedefs[d.Name]; dup {
				continue
			}
			target := d.Target
			n := &node{orig: d.Name, pos: d.Pos, target: &target}
			g.add(n)
			g.typedefs[d.Name] = n
		}
	}
	return g
}

func (g *graph) add(n *node) { g.nodes = append(g.nodes, n) }

// bindTypedef records that typedef name refers to n. A typedef spelled like
// the tag folds into the declaration; otherwise it becomes an alias item.
func (g *graph) bindTypedef(name string, n *node, ref cheader.TypeRef) {
	if name == "" {
		return
	}
	if name == n.orig {
		g.typedefs[name] = n
		return
	}
	alias := &node{orig: name, pos: n.pos, target: &ref}
	g.add(alias)
	g.typedefs[name] = alias
}

// resolve returns the node a type reference names, or nil for builtins and
// function pointers. Undefined records and typedefs get an opaque stand-in.
func (g *graph) resolve(ref cheader.TypeRef) *node {
	switch ref.Kind {
	case cheader.Builtin, cheader.FuncPointer:
		return nil
	case cheader.Named:
		if n, ok := g.typedefs[ref.Name]; ok {
			return n
		}
		n := g.synthesize(cheader.StructKind, ref.Name)
		g.typedefs[ref.Name] = n
		return n
	case cheader.EnumRef:
		if n, ok := g.tags["enum "+ref.Name]; ok {
			return n
		}
		n := g.synthesize(cheader.StructKind, ref.Name)
		g.tags["enum "+ref.Name] = n
		return n
	default:
		kind := cheader.StructKind
		if ref.Kind == cheader.UnionRef {
			kind = cheader.UnionKind
		}
		key := kind.String() + " " + ref.Name
		if n, ok := g.tags[key]; ok {
			return n
		}
		n := g.synthesize(kind, ref.Name)
		g.tags[key] = n
		return n
	}
}

func (g *graph) synthesize(kind cheader.RecordKind, name string) *node {
	n := &node{
		orig:      name,
		rec:       &cheader.Record{Kind: kind, Tag: name, Opaque: true},
		synthetic: true,
	}
	g.add(n)
	return n
}

func (n *node) refs() []cheader.TypeRef {
	switch {
	case n.rec != nil:
		out := make([]cheader.TypeRef, 0, len(n.rec.Fields))
		for _, f := range n.rec.Fields {
			out = append(out, f.Type)
		}
		return out
	case n.target != nil:
		return []cheader.TypeRef{*n.target}
	}
	return nil
}

// selectTypes marks the allowlisted nodes and everything they reference.
// An empty allowlist selects every declaration.
func (g *graph) selectTypes(res []*regexp.Regexp) {
	var visit func(n *node)
	visit = func(n *node) {
		if n.selected {
			return
		}
		n.selected = true
		for _, ref := range n.refs() {
			if dep := g.resolve(ref); dep != nil {
				visit(dep)
			}
		}
	}
	declared := len(g.nodes)
	for _, n := range g.nodes[:declared] {
		if len(res) == 0 || matchAny(res, n.orig) {
			visit(n)
		}
	}
}

// nameOf returns the rewritten name of n.
func (g *graph) nameOf(n *node) string {
	if !n.named {
		n.name = n.orig
		if name, ok := g.cb.ItemName(n.orig); ok {
			n.name = name
		}
		n.named = true
	}
	return n.name
}

func (g *graph) convert(ref cheader.TypeRef) meta.Type {
	t := meta.Type{
		Const:    ref.Const,
		Pointer:  ref.Pointer,
		ArrayLen: ref.ArrayLen,
	}
	switch ref.Kind {
	case cheader.Builtin:
		t.Kind = meta.Primitive
		t.Prim = ref.Name
	case cheader.FuncPointer:
		t.Kind = meta.FuncPtr
	default:
		t.Kind = meta.Ref
		t.Name = g.nameOf(g.resolve(ref))
	}
	return t
}

func (g *graph) emit(out *meta.Bindings, style meta.EnumStyle) error {
	for i := 0; i < len(g.nodes); i++ {
		n := g.nodes[i]
		if !n.selected {
			continue
		}
		name := g.nameOf(n)
		if name == "" {
			return fmt.Errorf("%w: type %s", ErrEmptyName, n.orig)
		}
		if n.target != nil {
			if t := g.resolve(*n.target); t != nil && g.nameOf(t) == name {
				g.logger.Debug("Folding typedef into its target", "typedef", n.orig, "name", name)
				continue
			}
		}
		if prev, dup := g.taken[name]; dup {
			return fmt.Errorf("%w: %s and %s both map to %s", ErrNameCollision, prev, n.orig, name)
		}
		g.taken[name] = n.orig

		switch {
		case n.enum != nil:
			e, err := g.enumItem(n, style)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, e)
		case n.rec != nil:
			if n.synthetic {
				g.logger.Warn("Type is not defined in the header, emitting it as opaque", "type", n.orig)
			}
			out.Items = append(out.Items, g.structItem(n))
		default:
			out.Items = append(out.Items, &meta.Alias{
				OriginalName: n.orig,
				Name:         name,
				Target:       g.convert(*n.target),
			})
		}
	}
	return nil
}

func (g *graph) enumItem(n *node, style meta.EnumStyle) (*meta.Enum, error) {
	e := n.enum
	values := make([]int64, 0, len(e.Variants))
	for _, v := range e.Variants {
		values = append(values, v.Value)
	}
	item := &meta.Enum{
		OriginalName: n.orig,
		Name:         g.nameOf(n),
		Repr:         meta.ReprFor(values...),
		Style:        style,
		Derives:      g.cb.AddDerives(callbacks.DeriveInfo{Name: n.orig, Kind: callbacks.Enum}),
		Attributes:   g.cb.AddAttributes(callbacks.AttributeInfo{Name: n.orig, Kind: callbacks.Enum}),
	}

	enumName, hasName := e.Name()
	first := make(map[int64]string)
	seen := make(map[string]string)
	for _, v := range e.Variants {
		value := callbacks.UnsignedValue(uint64(v.Value))
		if item.Repr.Signed() {
			value = callbacks.SignedValue(v.Value)
		}
		name, ok := g.cb.EnumVariantName(enumName, hasName, v.Name, value)
		if !ok {
			name = v.Name
		}
		if name == "" {
			return nil, fmt.Errorf("%w: variant %s of %s", ErrEmptyName, v.Name, n.orig)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: variants %s and %s of %s both map to %s", ErrNameCollision, prev, v.Name, n.orig, name)
		}
		seen[name] = v.Name

		ev := meta.EnumVariant{OriginalName: v.Name, Name: name, Value: v.Value}
		if f, dup := first[v.Value]; dup {
			ev.AliasOf = f
		} else {
			first[v.Value] = name
		}
		item.Variants = append(item.Variants, ev)
	}
	return item, nil
}

func (g *graph) structItem(n *node) *meta.Struct {
	kind := callbacks.Struct
	if n.rec.Kind == cheader.UnionKind {
		kind = callbacks.Union
	}
	l := g.lower(n)
	return &meta.Struct{
		OriginalName: n.orig,
		Name:         g.nameOf(n),
		Union:        n.rec.Kind == cheader.UnionKind,
		Fields:       l.fields,
		Opaque:       n.rec.Opaque,
		Size:         l.size,
		Align:        l.align,
		Derives:      g.cb.AddDerives(callbacks.DeriveInfo{Name: n.orig, Kind: kind}),
		Attributes:   g.cb.AddAttributes(callbacks.AttributeInfo{Name: n.orig, Kind: kind}),
	}
}

// constants collects the allowlisted integer macros followed by the
// allowlisted enumerators of anonymous enums.
func (g *graph) constants(h *cheader.Header, res []*regexp.Regexp) []*meta.Const {
	if len(res) == 0 {
		return nil
	}
	var out []*meta.Const
	for _, d := range h.Defines {
		if !matchAny(res, d.Name) {
			continue
		}
		out = append(out, &meta.Const{
			OriginalName: d.Name,
			Name:         d.Name,
			Value:        d.Value,
			Repr:         meta.ReprFor(d.Value),
			Text:         d.Text,
		})
	}
	for _, e := range g.anon {
		values := make([]int64, 0, len(e.Variants))
		for _, v := range e.Variants {
			values = append(values, v.Value)
		}
		repr := meta.ReprFor(values...)
		for _, v := range e.Variants {
			if !matchAny(res, v.Name) {
				continue
			}
			out = append(out, &meta.Const{
				OriginalName: v.Name,
				Name:         v.Name,
				Value:        v.Value,
				Repr:         repr,
			})
		}
	}
	return out
}
