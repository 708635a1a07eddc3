//go:build !threadctl_invariants

package controls

const invariantsEnabled = false
