package naming

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/hdrbind/internal/codegen/callbacks"
)

func TestItemName(t *testing.T) {
	n := NewNormalizer(DefaultOptions())

	tests := []struct {
		input string
		want  string
	}{
		{"color_t", "Color"},
		{"color", "Color"},
		{"rgb_color_t", "RgbColor"},
		{"device_state", "DeviceState"},
		{"colort", "Colort"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := n.ItemName(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnumVariantName(t *testing.T) {
	n := NewNormalizer(DefaultOptions())
	v := callbacks.UnsignedValue(0)

	tests := []struct {
		name        string
		enumName    string
		hasEnumName bool
		variant     string
		want        string
		ok          bool
	}{
		{
			name:        "prefix stripped",
			enumName:    "color_t",
			hasEnumName: true,
			variant:     "color_CORNFLOWER_BLUE",
			want:        "CornflowerBlue",
			ok:          true,
		},
		{
			name:        "second variant",
			enumName:    "color_t",
			hasEnumName: true,
			variant:     "color_RED",
			want:        "Red",
			ok:          true,
		},
		{
			name:        "variant without shared prefix is only re-cased",
			enumName:    "color_t",
			hasEnumName: true,
			variant:     "COLOR_RED",
			want:        "ColorRed",
			ok:          true,
		},
		{
			name:        "prefix must match including separator",
			enumName:    "color_t",
			hasEnumName: true,
			variant:     "colorRED",
			want:        "ColorRed",
			ok:          true,
		},
		{
			name:        "enum ending in t without underscore",
			enumName:    "colort",
			hasEnumName: true,
			variant:     "colorGREEN",
			want:        "Green",
			ok:          true,
		},
		{
			name:        "enum name not ending in t",
			enumName:    "color",
			hasEnumName: true,
			variant:     "color_RED",
			ok:          false,
		},
		{
			name:        "anonymous enum",
			hasEnumName: false,
			variant:     "color_RED",
			ok:          false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.EnumVariantName(tt.enumName, tt.hasEnumName, tt.variant, v)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnumAnnotations(t *testing.T) {
	n := NewNormalizer(DefaultOptions())

	derives := n.AddDerives(callbacks.DeriveInfo{Name: "color_t", Kind: callbacks.Enum})
	assert.Equal(t, []callbacks.Derive{callbacks.DeriveAsRefStr, callbacks.DeriveIntoStaticStr}, derives)

	attrs := n.AddAttributes(callbacks.AttributeInfo{Name: "color_t", Kind: callbacks.Enum})
	require.Len(t, attrs, 2)
	assert.Equal(t, `#[cfg_attr(feature = "serde", derive(serde::Deserialize, serde::Serialize))]`, attrs[0].String())
	assert.Equal(t, `#[strum(serialize_all = "SCREAMING_SNAKE_CASE")]`, attrs[1].String())

	for _, kind := range []callbacks.TypeKind{callbacks.Struct, callbacks.Union} {
		assert.Empty(t, n.AddDerives(callbacks.DeriveInfo{Name: "point_t", Kind: kind}), kind.String())
		assert.Empty(t, n.AddAttributes(callbacks.AttributeInfo{Name: "point_t", Kind: kind}), kind.String())
	}
}

func TestEnumAnnotationsSerializationDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.Serialization = false
	n := NewNormalizer(opts)

	assert.Len(t, n.AddDerives(callbacks.DeriveInfo{Name: "color_t", Kind: callbacks.Enum}), 2)
	assert.Empty(t, n.AddAttributes(callbacks.AttributeInfo{Name: "color_t", Kind: callbacks.Enum}))
}

func TestEnumAnnotationsUngatedFeature(t *testing.T) {
	opts := DefaultOptions()
	opts.SerdeFeature = ""
	n := NewNormalizer(opts)

	attrs := n.AddAttributes(callbacks.AttributeInfo{Name: "color_t", Kind: callbacks.Enum})
	require.Len(t, attrs, 2)
	assert.Equal(t, "#[derive(serde::Deserialize, serde::Serialize)]", attrs[0].String())
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	bad := DefaultOptions()
	bad.SerializeAll = "Sponge_Case"
	assert.Error(t, bad.Validate())

	bad.Serialization = false
	assert.NoError(t, bad.Validate())
}

func identifier() gopter.Gen {
	return gen.RegexMatch(`[a-z][a-z0-9]{0,6}(_[a-z0-9]{1,6}){0,3}`)
}

func TestNormalizerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	n := NewNormalizer(DefaultOptions())

	properties.Property("_t suffix is removed before re-casing", prop.ForAll(
		func(base string) bool {
			got, _ := n.ItemName(base + "_t")
			return got == UpperCamel(base)
		},
		identifier(),
	))

	properties.Property("names without _t are only re-cased", prop.ForAll(
		func(name string) bool {
			if strings.HasSuffix(name, "_t") {
				return true
			}
			got, _ := n.ItemName(name)
			return got == UpperCamel(name)
		},
		identifier(),
	))

	properties.Property("item naming is deterministic", prop.ForAll(
		func(name string) bool {
			a, _ := n.ItemName(name)
			b, _ := n.ItemName(name)
			return a == b
		},
		gen.AnyString(),
	))

	properties.Property("shared variant prefix is stripped", prop.ForAll(
		func(enum, member string) bool {
			got, ok := n.EnumVariantName(enum+"_t", true, enum+"_"+member, callbacks.UnsignedValue(0))
			return ok && got == UpperCamel(member)
		},
		identifier(),
		gen.RegexMatch(`[A-Z][A-Z0-9]{0,6}(_[A-Z0-9]{1,6}){0,2}`),
	))

	properties.Property("variants without the prefix are only re-cased", prop.ForAll(
		func(member string) bool {
			got, ok := n.EnumVariantName("zz_t", true, member, callbacks.UnsignedValue(0))
			return ok && got == UpperCamel(member)
		},
		gen.RegexMatch(`[A-Y][A-Z0-9]{0,6}(_[A-Z0-9]{1,6}){0,2}`),
	))

	properties.Property("enum annotations are identical for every enum", prop.ForAll(
		func(a, b string) bool {
			da := n.AddDerives(callbacks.DeriveInfo{Name: a, Kind: callbacks.Enum})
			db := n.AddDerives(callbacks.DeriveInfo{Name: b, Kind: callbacks.Enum})
			aa := n.AddAttributes(callbacks.AttributeInfo{Name: a, Kind: callbacks.Enum})
			ab := n.AddAttributes(callbacks.AttributeInfo{Name: b, Kind: callbacks.Enum})
			if len(da) != len(db) || len(aa) != len(ab) {
				return false
			}
			for i := range da {
				if da[i] != db[i] {
					return false
				}
			}
			for i := range aa {
				if aa[i] != ab[i] {
					return false
				}
			}
			return true
		},
		identifier(),
		identifier(),
	))

	properties.TestingRun(t)
}
