//go:build !windows

package util

// IsRunFromGUI always reports false outside Windows; terminals there stay
// open after the process exits.
func IsRunFromGUI() bool {
	return false
}
