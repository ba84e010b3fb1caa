// Package naming rewrites C identifiers into the conventions of the
// generated bindings.
//
// Normalizer is the callback set used by every generation pass: it strips
// the conventional "_t" type suffix, re-cases identifiers to upper camel
// case, strips enum-name prefixes from variants and annotates enumerations
// with string-conversion and serialization capabilities.
package naming
