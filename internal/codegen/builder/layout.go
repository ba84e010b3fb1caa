package builder

import (
	"fmt"

	"github.com/Alia5/hdrbind/internal/codegen/cheader"
	"github.com/Alia5/hdrbind/internal/codegen/meta"
)

// pointerSize is the size and alignment of data and function pointers.
const pointerSize = 8

// primSizes holds LP64 sizes of C builtins. Alignment equals size.
var primSizes = map[string]int64{
	"void":               0,
	"_Bool":              1,
	"char":               1,
	"signed char":        1,
	"unsigned char":      1,
	"short":              2,
	"unsigned short":     2,
	"int":                4,
	"unsigned int":       4,
	"long":               8,
	"unsigned long":      8,
	"long long":          8,
	"unsigned long long": 8,
	"float":              4,
	"double":             8,
	"long double":        16,
	"int8_t":             1,
	"int16_t":            2,
	"int32_t":            4,
	"int64_t":            8,
	"uint8_t":            1,
	"uint16_t":           2,
	"uint32_t":           4,
	"uint64_t":           8,
	"intptr_t":           8,
	"uintptr_t":          8,
	"size_t":             8,
	"ssize_t":            8,
	"ptrdiff_t":          8,
	"wchar_t":            4,
	"char16_t":           2,
	"char32_t":           4,
}

var unsignedOfSize = map[int64]string{
	1: "uint8_t",
	2: "uint16_t",
	4: "uint32_t",
	8: "uint64_t",
}

func alignUp(off, align int64) int64 {
	if align <= 1 {
		return off
	}
	return (off + align - 1) / align * align
}

// lower converts the fields of a record node and computes its layout.
// Consecutive bit-fields are packed into unsigned storage units named
// _bitfield_N.
func (g *graph) lower(n *node) *lowered {
	if n.lowered != nil {
		return n.lowered
	}
	l := &lowered{align: 1}
	if n.rec.Opaque || g.lowering[n] {
		return l
	}
	g.lowering[n] = true
	defer delete(g.lowering, n)

	union := n.rec.Kind == cheader.UnionKind
	var off int64
	place := func(f meta.Field, size, align int64) {
		if align > l.align {
			l.align = align
		}
		if union {
			if size > l.size {
				l.size = size
			}
		} else {
			off = alignUp(off, align)
			f.Offset = off
			off += size
		}
		l.fields = append(l.fields, f)
	}

	units := 0
	fields := n.rec.Fields
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f.BitWidth == 0 {
			size, align := g.layoutOf(f.Type)
			place(meta.Field{Name: f.Name, Type: g.convert(f.Type)}, size, align)
			continue
		}

		unit, _ := g.layoutOf(f.Type)
		prim, ok := unsignedOfSize[unit]
		if !ok {
			prim, unit = "uint32_t", 4
		}
		units++
		bf := meta.Field{
			Name: fmt.Sprintf("_bitfield_%d", units),
			Type: meta.Type{Kind: meta.Primitive, Prim: prim},
		}
		bits := 0
		for ; i < len(fields) && fields[i].BitWidth > 0; i++ {
			next, _ := g.layoutOf(fields[i].Type)
			if len(bf.Bitfields) > 0 && (next != unit || bits+fields[i].BitWidth > int(unit*8)) {
				break
			}
			bits += fields[i].BitWidth
			bf.Bitfields = append(bf.Bitfields, fields[i].Name)
		}
		i--
		place(bf, unit, unit)
	}

	if !union {
		l.size = off
	}
	l.size = alignUp(l.size, l.align)
	n.lowered = l
	return l
}

// layoutOf returns the size and alignment of a field type.
func (g *graph) layoutOf(ref cheader.TypeRef) (size, align int64) {
	switch {
	case ref.Pointer > 0 || ref.Kind == cheader.FuncPointer:
		size, align = pointerSize, pointerSize
	case ref.Kind == cheader.Builtin:
		size = primSizes[ref.Name]
		align = max(size, 1)
	default:
		size, align = g.nodeLayout(g.resolve(ref))
	}
	for _, n := range ref.ArrayLen {
		size *= n
	}
	return size, align
}

func (g *graph) nodeLayout(n *node) (size, align int64) {
	switch {
	case n.enum != nil:
		values := make([]int64, 0, len(n.enum.Variants))
		for _, v := range n.enum.Variants {
			values = append(values, v.Value)
		}
		s := meta.ReprFor(values...).Size()
		return s, s
	case n.rec != nil:
		l := g.lower(n)
		return l.size, l.align
	default:
		return g.layoutOf(*n.target)
	}
}
