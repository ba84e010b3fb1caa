package callbacks

// Chain runs several callbacks in registration order. Every member sees each
// naming hook and the last one that provides a name wins, so a callback
// registered later overrides an earlier one. Derives and attributes are
// concatenated with duplicates dropped.
type Chain []ParseCallbacks

func (c Chain) ItemName(original string) (name string, found bool) {
	for _, cb := range c {
		if n, ok := cb.ItemName(original); ok {
			name, found = n, true
		}
	}
	return name, found
}

func (c Chain) AddDerives(info DeriveInfo) []Derive {
	var out []Derive
	seen := make(map[Derive]bool)
	for _, cb := range c {
		for _, d := range cb.AddDerives(info) {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

func (c Chain) AddAttributes(info AttributeInfo) []Attribute {
	var out []Attribute
	seen := make(map[Attribute]bool)
	for _, cb := range c {
		for _, a := range cb.AddAttributes(info) {
			if seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

func (c Chain) EnumVariantName(enumName string, hasEnumName bool, original string, value EnumVariantValue) (name string, found bool) {
	for _, cb := range c {
		if n, ok := cb.EnumVariantName(enumName, hasEnumName, original, value); ok {
			name, found = n, true
		}
	}
	return name, found
}

func (c Chain) IncludeFile(path string) {
	for _, cb := range c {
		cb.IncludeFile(path)
	}
}
