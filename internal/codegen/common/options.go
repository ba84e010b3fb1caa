package common

// RenderOptions carries target-specific settings to language generators.
type RenderOptions struct {
	// Package is the package clause of generated Go files.
	Package string
}
