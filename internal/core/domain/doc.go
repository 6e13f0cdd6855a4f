// Package domain contains the core business types for vigil.
// It has no dependencies on adapters or infrastructure; every other
// package depends on it, never the other way around.
package domain
