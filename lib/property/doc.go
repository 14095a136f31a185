// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package property normalizes per-field values between their store
// representation and the forms the wire codec understands.
//
// Some field kinds cannot cross the wire as-is: a store key must
// travel as a portable token, a calendar date must shed the synthetic
// time-of-day the wire's timestamp type forces on it, and a numeric
// field must tolerate the wire's habit of widening integers to
// floats. Rather than teach the class descriptor or the
// reconciliation engine about every such kind, each kind registers an
// encode and/or decode function here and the engine applies whichever
// is present, passing unregistered kinds through unchanged.
//
// Registries are explicit objects, not ambient globals: construct one
// with Default (preloaded with the standard codecs) or New (empty),
// register any custom kinds during startup, and hand it to the
// session options. Registration is last-wins and is not synchronized —
// it belongs in startup code, before any session runs.
package property
