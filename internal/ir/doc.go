// Package ir provides the canonical intermediate representation types for
// the tabulation engine: the sealed IRValue family used for content-addressed
// hashing, the RFC 8785 canonical encoder, ballot and candidate types, and
// the closed voting error set.
//
// This package contains type definitions and pure encoding/hashing logic
// only. All other internal packages import ir; ir imports nothing internal.
// This keeps ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - No float types anywhere - vote counts use uint64, ranks use int
//   - Canonical encoding never touches the wall clock or package-level
//     randomness; anything that needs a seed takes it as an argument
package ir
